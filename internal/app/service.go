package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 服务接口
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器：任一服务退出即整体停机，服务按启动顺序停止
type Runner struct {
	services []Service
	closers  []shutdownHook
}

type shutdownHook struct {
	name string
	fn   func() error
}

type serviceExit struct {
	name string
	err  error
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// OnShutdown 注册服务全部停止后执行的资源释放（队列客户端、Redis 等），按注册逆序执行
func (r *Runner) OnShutdown(name string, fn func() error) {
	if r == nil || fn == nil {
		return
	}
	r.closers = append(r.closers, shutdownHook{name: name, fn: fn})
}

// RunWithOptions 运行服务并在收到系统信号时停机
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动全部服务并阻塞到 ctx 结束或首个服务退出
// 首个服务的错误带服务名返回；ctx 取消视为正常停机。
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	for _, svc := range r.services {
		if svc == nil {
			return errors.New("service is nil")
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make(chan serviceExit, len(r.services))
	for _, svc := range r.services {
		service := svc
		go func() {
			log.Infow("service_start", "service", service.Name())
			err := service.Start(ctx)
			log.Infow("service_exit", "service", service.Name(), "error", err)
			exits <- serviceExit{name: service.Name(), err: err}
		}()
	}

	var first serviceExit
	select {
	case <-ctx.Done():
		log.Infow("runner_shutdown", "reason", "signal")
	case first = <-exits:
		log.Infow("runner_shutdown", "reason", "service_exit", "service", first.name)
	}
	cancel()

	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	startedAt := time.Now()
	// 先停 HTTP 再停 worker，进行中的重算请求可以完成
	for _, svc := range r.services {
		if err := svc.Stop(stopCtx); err != nil {
			log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
		}
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		hook := r.closers[i]
		if err := hook.fn(); err != nil {
			log.Warnw("shutdown_hook_failed", "hook", hook.name, "error", err)
		}
	}
	log.Infow("runner_stopped", "elapsed_ms", time.Since(startedAt).Milliseconds())

	if first.err != nil {
		return fmt.Errorf("%s: %w", first.name, first.err)
	}
	return nil
}
