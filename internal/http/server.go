package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/allisson/classhub/internal/config"
	groupHTTP "github.com/allisson/classhub/internal/group/http"
	outboxHTTP "github.com/allisson/classhub/internal/outbox/http"
	userHTTP "github.com/allisson/classhub/internal/user/http"
)

// Server is the API HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the API server with all routes registered.
//
// Every /v1 route runs behind the tenant middleware: requests must carry a
// valid X-Tenant-Id header. Health and readiness endpoints are unscoped.
// Admin routes are additionally rate limited per client IP when enabled.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	userHandler *userHTTP.UserHandler,
	groupHandler *groupHTTP.GroupHandler,
	outboxHandler *outboxHTTP.OutboxHandler,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := router.Group("/v1")
	v1.Use(TenantMiddleware(logger))
	{
		v1.POST("/users", userHandler.RegisterHandler)
		v1.GET("/users/:id", userHandler.GetHandler)

		v1.POST("/groups", groupHandler.CreateHandler)
		v1.GET("/groups/:id", groupHandler.GetHandler)
		v1.POST("/groups/:id/members", groupHandler.AddMemberHandler)

		admin := v1.Group("/admin")
		if cfg.RateLimitEnabled {
			admin.Use(AdminRateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, logger))
		}
		admin.GET("/outbox", outboxHandler.ListHandler)
		admin.POST("/outbox/:id/requeue", outboxHandler.RequeueHandler)
	}

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the API HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
