package router

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/milhas-next/internal/authz"
	"github.com/milhas-next/internal/cache"
	"github.com/milhas-next/internal/config"
	adminhandlers "github.com/milhas-next/internal/http/handlers/admin"
	"github.com/milhas-next/internal/http/response"
	"github.com/milhas-next/internal/logger"
	"github.com/milhas-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "milhas"
	}
	limiter := NewRateLimiter(cache.Client())
	loginRule := NewRateLimitRule(redisPrefix, "admin_login", cfg.Security.LoginRateLimit)
	recomputeRule := NewRateLimitRule(redisPrefix, "payout_recompute", cfg.Security.RecomputeRateLimit)

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	apiV1.GET("/health", healthHandler(c))

	admin := apiV1.Group("/admin")
	{
		admin.POST("/login", RateLimitMiddleware(limiter, loginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

		authorized := admin.Group("")
		authorized.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
		{
			authorized.GET("/me", adminHandler.GetAdminMe)
			authorized.POST("/logout", adminHandler.AdminLogout)

			// 分润方案
			authorized.GET("/profit-share-plans", adminHandler.GetProfitSharePlans)
			authorized.POST("/profit-share-plans", adminHandler.UpsertProfitSharePlan)
			authorized.GET("/profit-share-plans/resolve", adminHandler.ResolveProfitSharePlan)
			authorized.POST("/profit-share-plans/:id/deactivate", adminHandler.DeactivateProfitSharePlan)

			// 日结
			authorized.POST("/payouts/recompute", RateLimitMiddleware(limiter, recomputeRule, KeyByAdminID), adminHandler.RecomputePayouts)
			authorized.GET("/payouts", adminHandler.GetPayouts)
			authorized.POST("/payouts/:id/mark-paid", adminHandler.MarkPayoutPaid)
			authorized.GET("/sales/:id/commission", adminHandler.GetSaleCommission)

			// 配置
			authorized.GET("/settings/program-costs", adminHandler.GetProgramCostSetting)
			authorized.PUT("/settings/program-costs", adminHandler.UpdateProgramCostSetting)
			authorized.DELETE("/settings/program-costs", adminHandler.ResetProgramCostSetting)

			// VIP
			authorized.GET("/vip/settings", adminHandler.GetVipSetting)
			authorized.PUT("/vip/settings", adminHandler.UpdateVipSetting)
			authorized.GET("/vip/payments", adminHandler.GetVipPayments)
			authorized.POST("/vip/payments", adminHandler.CreateVipPayment)
			authorized.GET("/vip/distribution", adminHandler.GetVipDistribution)

			authorized.GET("/authz/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	return r
}

func healthHandler(c *provider.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "ok", "redis": "disabled", "queue": "disabled"}
		if sqlDB, err := c.DB.DB(); err != nil || sqlDB.PingContext(checkCtx) != nil {
			status["status"] = "degraded"
			status["database"] = "unavailable"
		}
		if cache.Enabled() {
			status["redis"] = "ok"
			if err := cache.Ping(checkCtx); err != nil {
				status["status"] = "degraded"
				status["redis"] = "unavailable"
			}
		}
		if c.QueueClient.Enabled() {
			status["queue"] = "ok"
		}
		response.Success(ctx, status)
	}
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 汇总需要鉴权的后台接口，供角色配置参考
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}
	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))
	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") || item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})
	return items
}

func deriveAdminPermissionModule(object string) string {
	trimmed := strings.TrimPrefix(object, "/admin/")
	if trimmed == "" {
		return "admin"
	}
	return strings.SplitN(trimmed, "/", 2)[0]
}
