// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/auth"
	"github.com/allisson/publishq/internal/config"
	jobHTTP "github.com/allisson/publishq/internal/job/http"
	"github.com/allisson/publishq/internal/metrics"
	publishHTTP "github.com/allisson/publishq/internal/publish/http"
)

const readinessTimeout = 2 * time.Second

// Server represents the HTTP API server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server. Call SetupRouter before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter registers middleware and routes.
//
// /v1 management routes require the API token when tokenVerifier is set. The
// callback route is outside that group: platforms authenticate with signatures
// and are rate limited per IP instead.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	jobHandler *jobHTTP.JobHandler,
	publishHandler *publishHTTP.PublishHandler,
	callbackHandler *publishHTTP.CallbackHandler,
	tokenVerifier auth.TokenVerifier,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := newCORSMiddleware(cfg, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	callbacks := v1.Group("/callbacks")
	if cfg.RateLimitCallbackEnabled {
		callbacks.Use(publishHTTP.CallbackRateLimitMiddleware(
			ctx,
			cfg.RateLimitCallbackRequestsPerSec,
			cfg.RateLimitCallbackBurst,
			s.logger,
		))
	}
	callbacks.POST("/:platform", callbackHandler.IngestHandler)

	management := v1.Group("")
	if tokenVerifier != nil {
		management.Use(APITokenMiddleware(tokenVerifier, s.logger))
	} else {
		s.logger.Warn("no API token configured, management routes are unauthenticated")
	}

	management.POST("/jobs", jobHandler.EnqueueHandler)
	management.GET("/jobs/:id", jobHandler.GetHandler)
	management.POST("/jobs/:id/replay", jobHandler.ReplayHandler)
	management.POST("/queues/:queue/drain", jobHandler.DrainHandler)
	management.GET("/queues/:queue/dead-letters", jobHandler.ListDeadLettersHandler)
	management.GET("/stats", jobHandler.StatsHandler)

	management.POST("/publish-requests", publishHandler.CreateHandler)
	management.GET("/publish-requests/stats", publishHandler.StatsHandler)
	management.GET("/publish-requests/:id", publishHandler.GetHandler)

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("router not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the queue store answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
