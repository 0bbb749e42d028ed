package app

import (
	"time"
	"worksheet_backend/docs"
	"worksheet_backend/internal/config"
	"worksheet_backend/internal/middleware"
	"worksheet_backend/internal/model"
	"worksheet_backend/pkg/monitoring"
	"worksheet_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)
	}

	// 练习卷：可选认证，登录用户按创建者隔离
	worksheets := api.Group("/worksheets")
	worksheets.Use(middleware.TryAuthMiddleware(cfg))
	{
		worksheets.POST("/generate", append(a.generateGuards(cfg), c.worksheet.Generate)...)
		worksheets.GET("", c.worksheet.List)
		worksheets.GET("/:id", c.worksheet.Get)
	}

	// 题库统计：配置了 JWT 时仅教师与管理员可见
	tasks := api.Group("/tasks")
	if cfg.JWT.Secret != "" {
		tasks.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Teacher, model.Admin))
	}
	{
		tasks.GET("/pool/stats", c.task.PoolStats)
	}
}

// generateGuards 组卷接口的额外限流，需在认证之后执行
func (a *App) generateGuards(cfg *config.Config) []gin.HandlerFunc {
	if cfg.RateLimit.GeneratePerMinute <= 0 {
		return nil
	}
	limiter := security.NewLimiter(cfg.RateLimit.GeneratePerMinute, time.Minute)
	a.limiters = append(a.limiters, limiter)
	return []gin.HandlerFunc{limiter.Middleware(middleware.RateKey)}
}
