package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/taskfi-backend/internal/config"
	"github.com/ignatzorin/taskfi-backend/internal/http/handlers"
	"github.com/ignatzorin/taskfi-backend/internal/http/middleware"
	"github.com/ignatzorin/taskfi-backend/internal/metrics"
)

// Handlers собирает все хэндлеры API.
type Handlers struct {
	Jobs          *handlers.JobHandler
	Gigs          *handlers.GigHandler
	Payments      *handlers.PaymentHandler
	Notifications *handlers.NotificationHandler
	Users         *handlers.UserHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessTokenParser, limitStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorHandler())
	r.Use(metrics.Middleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	if h.Health != nil {
		r.GET("/health", h.Health.Health)
	}
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	if h.WS != nil {
		api.GET("/ws", h.WS.Handle)
	}

	protected := api.Group("/")
	protected.Use(middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))
	protected.Use(middleware.AuthMiddleware(tokens))
	{
		protected.GET("/users/me", h.Users.GetMe)
		protected.DELETE("/users/me", h.Users.Deactivate)

		protected.POST("/jobs", h.Jobs.CreateJob)
		protected.GET("/jobs/:id", middleware.UUIDValidator("id"), h.Jobs.GetJob)
		protected.POST("/jobs/:id/cancel", middleware.UUIDValidator("id"), h.Jobs.CancelJob)
		protected.POST("/jobs/:id/applications", middleware.UUIDValidator("id"), h.Jobs.Apply)
		protected.GET("/jobs/:id/applications", middleware.UUIDValidator("id"), h.Jobs.ListApplications)
		protected.PUT("/jobs/:id/applications", middleware.UUIDValidator("id"), h.Jobs.Decide)
		protected.PUT("/jobs/:id/applications/:applicationId", middleware.UUIDValidator("id"), middleware.UUIDValidator("applicationId"), h.Jobs.DecideSingle)

		protected.POST("/gigs", h.Gigs.CreateGig)
		protected.GET("/gigs/:id", middleware.UUIDValidator("id"), h.Gigs.GetGig)
		protected.POST("/gigs/:id/orders", middleware.UUIDValidator("id"), h.Gigs.Purchase)

		// Платежи и escrow
		protected.POST("/payments", h.Payments.CreatePayment)
		protected.GET("/payments/:id", middleware.UUIDValidator("id"), h.Payments.GetPayment)
		protected.PUT("/payments/:id", middleware.UUIDValidator("id"), h.Payments.UpdatePayment)
		protected.GET("/payments/:id/history", middleware.UUIDValidator("id"), h.Payments.History)
		protected.POST("/payments/:id/escrow", middleware.UUIDValidator("id"), h.Payments.FundEscrow)
		protected.PUT("/payments/:id/escrow", middleware.UUIDValidator("id"), h.Payments.UpdateEscrow)

		protected.GET("/notifications", h.Notifications.ListNotifications)
		protected.GET("/notifications/unread/count", h.Notifications.CountUnread)
		protected.PUT("/notifications/read-all", h.Notifications.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), h.Notifications.DeleteNotification)
	}

	return r
}
