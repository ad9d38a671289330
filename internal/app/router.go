package app

import (
	"lms_support_backend/docs"
	"lms_support_backend/internal/config"
	"lms_support_backend/internal/middleware"
	"lms_support_backend/internal/model"
	"lms_support_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}

	// 登录后通用接口
	authed := router.Group("/api")
	authed.Use(middleware.AuthMiddleware(cfg))
	{
		authed.GET("/profile", c.auth.Profile)
	}

	// 学生端：工单生命周期
	student := router.Group("/api")
	student.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Student))
	{
		student.GET("/tickets", c.ticket.List)
		student.POST("/tickets", c.ticket.Create)
		student.GET("/tickets/categories", c.ticket.Categories)
		student.GET("/tickets/:id", c.ticket.Detail)
		student.POST("/tickets/:id/messages", c.ticket.PostMessage)
		student.POST("/tickets/:id/reopen", c.ticket.Reopen)
		student.POST("/tickets/:id/rating", c.ticket.Rate)
	}

	// 管理端：队列处理、知识库、看板
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/tickets", c.admin.ListTickets)
		admin.GET("/tickets/:id", c.admin.TicketDetail)
		admin.POST("/tickets/:id/respond", c.admin.Respond)
		admin.POST("/tickets/:id/resolve", c.admin.Resolve)
		admin.PUT("/tickets/:id/status", c.admin.SetStatus)
		admin.POST("/tickets/:id/reopen", c.admin.Reopen)

		admin.GET("/documents", c.admin.ListDocuments)
		admin.POST("/documents", c.admin.UploadDocument)
		admin.GET("/documents/categories", c.admin.DocumentCategories)
		admin.DELETE("/documents/:id", c.admin.DeleteDocument)

		admin.GET("/catalog", c.admin.CatalogEntries)
		admin.POST("/catalog/toggle-category", c.admin.ToggleCategory)
		admin.POST("/catalog/toggle-course", c.admin.ToggleCourse)

		admin.GET("/analytics", c.admin.Analytics)
	}
}
