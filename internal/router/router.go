package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/bakurah/investors-portal-api/internal/handler"
	"github.com/bakurah/investors-portal-api/internal/middleware"
	"github.com/bakurah/investors-portal-api/internal/models"
	"github.com/bakurah/investors-portal-api/internal/repository"
	"github.com/bakurah/investors-portal-api/internal/service"
	"github.com/bakurah/investors-portal-api/pkg/config"
	"github.com/bakurah/investors-portal-api/pkg/logger"
	corsmiddleware "github.com/bakurah/investors-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bakurah/investors-portal-api/pkg/middleware/requestid"
)

// Dependencies carries everything route registration needs.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	Users *repository.UserRepository

	AuthService         *service.AuthService
	UserService         *service.UserService
	RequestService      *service.RequestService
	AttachmentService   *service.AttachmentService
	NotificationService *service.NotificationService
	DashboardService    *service.DashboardService
	ChatService         *service.ChatService
	SignupService       *service.SignupService
	ContentService      *service.ContentService
	ReportService       *service.ReportService
	MetricsService      *service.MetricsService
}

// New builds the gin engine with all portal routes registered.
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if deps.MetricsService != nil {
		r.Use(middleware.Metrics(deps.MetricsService))
	}

	authHandler := handler.NewAuthHandler(deps.AuthService)
	userHandler := handler.NewUserHandler(deps.UserService)
	requestHandler := handler.NewRequestHandler(deps.RequestService, deps.DashboardService)
	adminRequestHandler := handler.NewAdminRequestHandler(deps.RequestService, deps.DashboardService)
	attachmentHandler := handler.NewAttachmentHandler(deps.AttachmentService)
	notificationHandler := handler.NewNotificationHandler(deps.NotificationService)
	dashboardHandler := handler.NewDashboardHandler(deps.DashboardService)
	chatHandler := handler.NewChatHandler(deps.ChatService)
	signupHandler := handler.NewSignupHandler(deps.SignupService, deps.DashboardService)
	contentHandler := handler.NewContentHandler(deps.ContentService)
	reportHandler := handler.NewReportHandler(deps.ReportService)
	metricsHandler := handler.NewMetricsHandler(deps.MetricsService)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	// Public surfaces: signup intake, CMS content and signed downloads.
	api.POST("/signups", signupHandler.Create)

	content := api.Group("/content")
	{
		content.GET("/projects", contentHandler.PublicProjects)
		content.GET("/homepage", contentHandler.PublicHomepage)
		content.GET("/news", contentHandler.PublicNews)
	}

	api.GET("/attachments/download", attachmentHandler.Download)
	api.GET("/reports/download", reportHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.AuthService))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)
		authed.PUT("/profile", userHandler.UpdateProfile)

		authed.GET("/dashboard", dashboardHandler.Investor)

		requests := authed.Group("/requests")
		{
			requests.GET("", requestHandler.List)
			requests.POST("", requestHandler.Create)
			requests.GET("/:id", requestHandler.Get)
			requests.PUT("/:id", requestHandler.Update)
			requests.POST("/:id/submit", requestHandler.Submit)
			requests.POST("/:id/provide-info", requestHandler.ProvideInfo)
			requests.GET("/:id/events", requestHandler.Events)
			requests.POST("/:id/attachments", attachmentHandler.Upload)
			requests.GET("/:id/statement", reportHandler.Statement)
		}

		authed.GET("/attachments/:id/link", attachmentHandler.DownloadLink)

		chat := authed.Group("/chat/conversations")
		{
			chat.POST("", chatHandler.Open)
			chat.GET("", chatHandler.List)
			chat.POST("/:id/messages", chatHandler.Send)
			chat.GET("/:id/messages", chatHandler.Messages)
			chat.POST("/:id/read", chatHandler.MarkRead)
		}

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(deps.AuthService), middleware.RequireStaff())
	{
		admin.GET("/dashboard", dashboardHandler.Admin)

		adminRequests := admin.Group("/requests")
		{
			adminRequests.GET("", adminRequestHandler.List)
			adminRequests.POST("/:id/decide",
				middleware.Audit(deps.Users, "REQUEST_DECIDE", "investor_request"),
				adminRequestHandler.Decide)
			adminRequests.POST("/:id/settle",
				middleware.Audit(deps.Users, "REQUEST_SETTLE", "investor_request"),
				adminRequestHandler.MarkSettling)
			adminRequests.POST("/:id/complete",
				middleware.Audit(deps.Users, "REQUEST_COMPLETE", "investor_request"),
				adminRequestHandler.MarkCompleted)
		}

		signups := admin.Group("/signups")
		{
			signups.GET("", signupHandler.List)
			signups.POST("/:id/review",
				middleware.Audit(deps.Users, "SIGNUP_REVIEW", "investor_signup"),
				signupHandler.Review)
		}

		adminContent := admin.Group("/content")
		{
			adminContent.GET("/projects", contentHandler.ListProjects)
			adminContent.POST("/projects", contentHandler.CreateProject)
			adminContent.PUT("/projects/:id", contentHandler.UpdateProject)
			adminContent.DELETE("/projects/:id", contentHandler.DeleteProject)
			adminContent.PUT("/homepage", contentHandler.UpsertHomepageSection)
			adminContent.GET("/news", contentHandler.ListNews)
			adminContent.POST("/news", contentHandler.CreateNews)
			adminContent.PUT("/news/:id", contentHandler.UpdateNews)
			adminContent.DELETE("/news/:id", contentHandler.DeleteNews)
		}

		users := admin.Group("/users")
		{
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.POST("", middleware.RequireRoles(models.RoleSuperAdmin), userHandler.Create)
			users.PUT("/:id", middleware.RequireRoles(models.RoleSuperAdmin), userHandler.Update)
		}

		admin.GET("/audit-logs", userHandler.AuditLogs)
		admin.GET("/reports/requests", reportHandler.Export)
	}

	return r
}
