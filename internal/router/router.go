package router

import (
	"fmt"
	"strings"

	"github.com/tms-next/internal/cache"
	"github.com/tms-next/internal/config"
	adminhandlers "github.com/tms-next/internal/http/handlers/admin"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "tms"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}

	// 中间件
	r.Use(RecoveryMiddleware(log))
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("username")), adminHandler.Login)

			authorized := admin.Group("")
			authorized.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AuthService))
			authorized.Use(RBACMiddleware(c.Authz))
			{
				authorized.GET("/me", adminHandler.GetCurrentUser)

				// 规划任务与进度
				authorized.POST("/planning-runs", adminHandler.CreatePlanningRun)
				authorized.GET("/tasks/:task_id", adminHandler.GetTask)
				authorized.GET("/notifications", adminHandler.GetNotifications)
				authorized.POST("/notifications/:id/read", adminHandler.MarkNotificationRead)

				// 路线编排
				authorized.GET("/compositions", adminHandler.GetCompositions)
				authorized.GET("/compositions/:id", adminHandler.GetComposition)
				authorized.POST("/compositions/:id/status", adminHandler.UpdateCompositionStatus)
				authorized.POST("/compositions/:id/load-plans", adminHandler.AddCompositionLoadPlans)
				authorized.POST("/compositions/:id/deliveries/assign", adminHandler.AssignCompositionDeliveries)
				authorized.POST("/compositions/:id/deliveries/unassign", adminHandler.UnassignCompositionDeliveries)

				// 装载计划
				authorized.GET("/load-plans/:id", adminHandler.GetLoadPlan)
				authorized.DELETE("/load-plans/:id", adminHandler.DeleteLoadPlan)
				authorized.POST("/load-plans/:id/optimize", adminHandler.OptimizeLoadPlan)
				authorized.GET("/load-plans/:id/export", adminHandler.ExportLoadPlan)

				// 配送单
				authorized.GET("/deliveries", adminHandler.GetDeliveries)
				authorized.GET("/deliveries/:id", adminHandler.GetDelivery)
				authorized.POST("/deliveries/import", adminHandler.ImportDeliveries)
				authorized.POST("/deliveries/:id/cancel", adminHandler.CancelDelivery)
				authorized.POST("/deliveries/:id/geocode", adminHandler.GeocodeDelivery)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "redis": cache.Enabled()}
		if models.DB != nil {
			if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
				status["status"] = "degraded"
			}
		}
		ctx.JSON(200, status)
	})

	return r
}
