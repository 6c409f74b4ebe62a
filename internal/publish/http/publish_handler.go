// Package http provides HTTP handlers for publish requests and platform callbacks.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/httputil"
	"github.com/allisson/publishq/internal/publish/http/dto"
	publishUseCase "github.com/allisson/publishq/internal/publish/usecase"
	customValidation "github.com/allisson/publishq/internal/validation"
)

// PublishHandler handles HTTP requests for publish requests.
type PublishHandler struct {
	publishUseCase publishUseCase.PublishUseCase
	logger         *slog.Logger
}

// NewPublishHandler creates a new publish handler with required dependencies.
func NewPublishHandler(publishUseCase publishUseCase.PublishUseCase, logger *slog.Logger) *PublishHandler {
	return &PublishHandler{
		publishUseCase: publishUseCase,
		logger:         logger,
	}
}

// CreateHandler stores a publish request and schedules its job.
// POST /v1/publish-requests - Returns 201 Created.
func (h *PublishHandler) CreateHandler(c *gin.Context) {
	var req dto.CreatePublishRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	publishRequest, err := h.publishUseCase.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPublishRequestToResponse(publishRequest))
}

// GetHandler retrieves a publish request by ID.
// GET /v1/publish-requests/:id
func (h *PublishHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid publish request id: %w", err), h.logger)
		return
	}

	publishRequest, err := h.publishUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPublishRequestToResponse(publishRequest))
}

// StatsHandler returns publish request counts by status.
// GET /v1/publish-requests/stats
func (h *PublishHandler) StatsHandler(c *gin.Context) {
	counts, err := h.publishUseCase.Stats(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPublishStatsToResponse(counts))
}
