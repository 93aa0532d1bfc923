package worker

import (
	"context"
	"errors"

	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务，附带定时调度
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	consumer  *Consumer
	scheduler *Scheduler
}

// NewService 创建异步队列服务，scheduler 可为空
func NewService(cfg *config.QueueConfig, consumer *Consumer, scheduler *Scheduler) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:      "worker",
		server:    server,
		mux:       mux,
		consumer:  consumer,
		scheduler: scheduler,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		go func() {
			_ = s.scheduler.Start(ctx)
		}()
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	if s.scheduler != nil {
		_ = s.scheduler.Stop(ctx)
	}
	s.server.Shutdown()
	return nil
}
