package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"freelance/tracker/internal/handler"
	"freelance/tracker/internal/middleware"
	"freelance/tracker/internal/service"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	CORSOrigins []string
	Logger      *zap.Logger
	// Checks are keyed by dependency name; any failure makes /readyz return 503.
	Checks map[string]ReadinessCheck
}

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	projectHandler *handler.ProjectHandler,
	opts Options,
) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger), gin.Recovery(), middleware.CORS(opts.CORSOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, check := range opts.Checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.Auth(authService), authHandler.Me)

	projects := api.Group("/projects")
	projects.Use(middleware.Auth(authService))
	projects.GET("", projectHandler.List)
	projects.POST("", projectHandler.Create)
	projects.GET("/:projectId", projectHandler.Get)
	projects.PUT("/:projectId/progress", projectHandler.UpdateProgress)
	projects.PUT("/:projectId/time-tracked", projectHandler.UpdateTimeTracked)
	projects.POST("/:projectId/milestones", projectHandler.CreateMilestone)
	projects.PUT("/:projectId/milestones/:milestoneId/status", projectHandler.UpdateMilestoneStatus)

	return engine
}
