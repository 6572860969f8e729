package routes

import (
	"net/http"

	"github.com/ArowuTest/crownbid-backend/internal/config"
	"github.com/ArowuTest/crownbid-backend/internal/handlers"
	"github.com/ArowuTest/crownbid-backend/internal/middleware"
	"github.com/ArowuTest/crownbid-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted by SetupRouter
type Handlers struct {
	Settlement *handlers.SettlementHandler
	Crown      *handlers.CrownHandler
	Payment    *handlers.PaymentHandler
	Queue      *handlers.QueueHandler
	// Metrics serves /metrics; nil leaves the route unmounted.
	Metrics http.Handler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, h Handlers, tokens *jwt.TokenService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedHosts))

	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		public.GET("/crown", h.Crown.GetPublicCrown)
		public.GET("/queue", h.Queue.ListQueue)
	}

	// Scheduler trigger
	cron := router.Group("/api/v1/cron")
	cron.Use(middleware.CronSecretMiddleware(cfg.Cron.Secret))
	{
		cron.POST("/settle-crown", h.Settlement.SettleCrown)
	}

	// Signed-in candidate routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(tokens))
	{
		payment := protected.Group("/payment")
		{
			payment.POST("/setup-intent", h.Payment.CreateSetupIntent)
			payment.POST("/attach-method", h.Payment.AttachMethod)
			payment.POST("/default-method", h.Payment.SetDefaultMethod)
			payment.POST("/delete-method", h.Payment.DeleteMethod)
			payment.POST("/deactivate", h.Payment.Deactivate)
		}
		protected.POST("/queue/sync", h.Queue.SyncQueue)
	}

	// Operator routes
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(tokens), middleware.RequireOperator(cfg.Admin.UIDs))
	{
		admin.POST("/assign-crown-now", h.Settlement.AssignCrownNow)
		admin.POST("/crown/unlock", h.Settlement.UnlockCrown)
		admin.GET("/crown-status", h.Crown.GetCrownStatus)
		admin.GET("/crown-events", h.Crown.ListCrownEvents)
		admin.GET("/candidates", h.Settlement.ListCandidates)
		admin.GET("/users", h.Crown.ListUsers)
	}

	return router
}
