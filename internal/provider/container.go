// Package provider 组装仓库与服务，进程启动时构建一次并显式传递
package provider

import (
	"fmt"

	"github.com/milhas-next/internal/authz"
	"github.com/milhas-next/internal/cache"
	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/logger"
	"github.com/milhas-next/internal/queue"
	"github.com/milhas-next/internal/repository"
	"github.com/milhas-next/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Locker      cache.Locker

	// Repositories
	AdminRepo    repository.AdminRepository
	SettingRepo  repository.SettingRepository
	EmployeeRepo repository.EmployeeRepository
	SaleRepo     repository.SaleRepository
	PlanRepo     repository.ProfitSharePlanRepository
	PayoutRepo   repository.EmployeePayoutRepository
	VipRepo      repository.VipRepository

	// Services
	AuthzService   *authz.Service
	AuthService    *service.AuthService
	SettingService *service.SettingService
	PlanService    *service.ProfitSharePlanService
	PayoutService  *service.PayoutService
	VipService     *service.VipDistributionService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}

	if err := cache.InitRedis(&cfg.Redis); err != nil {
		// Redis 不可用时运行锁退化为进程内锁，缓存读写为空操作
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
		Locker:      cache.NewLocker(),
	}
	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.AdminRepo = repository.NewAdminRepository(c.DB)
	c.SettingRepo = repository.NewSettingRepository(c.DB)
	c.EmployeeRepo = repository.NewEmployeeRepository(c.DB)
	c.SaleRepo = repository.NewSaleRepository(c.DB)
	c.PlanRepo = repository.NewProfitSharePlanRepository(c.DB)
	c.PayoutRepo = repository.NewEmployeePayoutRepository(c.DB)
	c.VipRepo = repository.NewVipRepository(c.DB)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}
	c.AuthzService = authzService

	location, err := c.Config.Payout.Location()
	if err != nil {
		logger.Errorw("provider_load_timezone_failed", "timezone", c.Config.Payout.Timezone, "error", err)
		return err
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.PlanService = service.NewProfitSharePlanService(c.PlanRepo, c.EmployeeRepo, location)
	c.PayoutService = service.NewPayoutService(
		c.SaleRepo,
		c.PlanRepo,
		c.PayoutRepo,
		c.EmployeeRepo,
		c.SettingService,
		c.PlanService,
		c.Locker,
		service.PayoutOptions{
			Location:     location,
			TaxBps:       c.Config.Payout.TaxBps,
			FlatRateBps:  c.Config.Payout.FlatRateBps,
			BonusRateBps: c.Config.Payout.BonusRateBps,
			LockTTL:      c.Config.Payout.LockTTL(),
		},
	)
	c.VipService = service.NewVipDistributionService(c.VipRepo, c.EmployeeRepo, location, c.Config.Vip.CacheTTL())
	return nil
}

// Close 释放队列与缓存连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
