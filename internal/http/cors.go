package http

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/allisson/publishq/internal/config"
	publishService "github.com/allisson/publishq/internal/publish/service"
)

// corsMethods are the methods the management API answers to. Platform
// callbacks are server to server and never need a preflight.
var corsMethods = []string{"GET", "POST"}

// newCORSMiddleware builds the CORS middleware for an operator dashboard that
// calls the management routes from a browser. Returns nil when CORS_ENABLED
// is false or CORS_ALLOW_ORIGINS lists no origin.
func newCORSMiddleware(cfg *config.Config, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.CORSEnabled {
		return nil
	}

	origins := publishService.ParseList(cfg.CORSAllowOrigins)
	if len(origins) == 0 {
		logger.Warn("CORS_ENABLED is set but CORS_ALLOW_ORIGINS is empty, CORS not applied")
		return nil
	}

	logger.Info("cors enabled for management routes", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: corsMethods,
		AllowHeaders: []string{"Authorization", "Content-Type"},
		// Bearer tokens travel in a header, never in cookies.
		AllowCredentials: false,
		ExposeHeaders:    []string{"X-Request-Id"},
		MaxAge:           time.Hour,
	})
}
