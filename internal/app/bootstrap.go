package app

import (
	"errors"

	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/models"
	"github.com/milhas-next/internal/provider"
	"github.com/milhas-next/internal/router"
	"github.com/milhas-next/internal/worker"

	"gorm.io/gorm"
)

// InitStorage 连接数据库、迁移表结构并创建默认管理员
func InitStorage(cfg *config.Config) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.LogLevel, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(); err != nil {
		return nil, err
	}
	if _, err := models.InitDefaultAdmin(models.DB, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		return nil, err
	}
	return models.DB, nil
}

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, container *provider.Container, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if container == nil {
		return nil, errors.New("container is nil")
	}
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 初始化 Worker 服务；未启用队列时 all 模式退化为进程内定时重算
	if mode == ModeAll || mode == ModeWorker {
		location := container.PayoutService.Location()
		if container.QueueClient.Enabled() {
			scheduler := worker.NewScheduler(
				container.EmployeeRepo,
				worker.QueueDispatcher{Client: container.QueueClient},
				location,
				cfg.Payout.ScheduleInterval(),
				cfg.Payout.LookbackDays,
			)
			workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container), scheduler)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			return nil, errors.New("worker mode requires queue.enabled")
		} else {
			services = append(services, worker.NewScheduler(
				container.EmployeeRepo,
				worker.InlineDispatcher{Payouts: container.PayoutService, Vip: container.VipService},
				location,
				cfg.Payout.ScheduleInterval(),
				cfg.Payout.LookbackDays,
			))
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	db, err := InitStorage(opts.Config)
	if err != nil {
		return err
	}
	container, err := provider.NewContainer(opts.Config, db)
	if err != nil {
		return err
	}

	runner, err := BuildRunner(opts.Config, container, opts.Mode)
	if err != nil {
		container.Close()
		return err
	}
	runner.OnShutdown("container", func() error {
		container.Close()
		return nil
	})

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode, "queue_enabled", container.QueueClient.Enabled())
	return RunWithOptions(runner, opts)
}
