// Package http provides HTTP handlers for enqueueing, inspecting and draining jobs.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/publishq/internal/httputil"
	"github.com/allisson/publishq/internal/job/http/dto"
	jobUseCase "github.com/allisson/publishq/internal/job/usecase"
	customValidation "github.com/allisson/publishq/internal/validation"
)

// JobHandler handles HTTP requests for queue management.
type JobHandler struct {
	queueUseCase jobUseCase.QueueUseCase
	drainUseCase jobUseCase.DrainUseCase
	logger       *slog.Logger
}

// NewJobHandler creates a new job handler with required dependencies.
func NewJobHandler(
	queueUseCase jobUseCase.QueueUseCase,
	drainUseCase jobUseCase.DrainUseCase,
	logger *slog.Logger,
) *JobHandler {
	return &JobHandler{
		queueUseCase: queueUseCase,
		drainUseCase: drainUseCase,
		logger:       logger,
	}
}

// EnqueueHandler enqueues a job.
// POST /v1/jobs - Returns 201 Created for a new job, or 200 OK with the active job
// already holding the dedup key.
func (h *JobHandler) EnqueueHandler(c *gin.Context) {
	var req dto.EnqueueJobRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	job, created, err := h.queueUseCase.Enqueue(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, dto.MapJobToResponse(job))
}

// GetHandler retrieves a job by ID.
// GET /v1/jobs/:id
func (h *JobHandler) GetHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	job, err := h.queueUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapJobToResponse(job))
}

// ReplayHandler moves a failed job back to pending.
// POST /v1/jobs/:id/replay - Returns 409 Conflict when the job is not failed.
func (h *JobHandler) ReplayHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	job, err := h.queueUseCase.Replay(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapJobToResponse(job))
}

// DrainHandler processes exactly one job of the queue and reports what happened.
// POST /v1/queues/:queue/drain - Always 200 unless the store is unreachable.
func (h *JobHandler) DrainHandler(c *gin.Context) {
	queue := c.Param("queue")
	if err := customValidation.Name.Validate(queue); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.drainUseCase.Drain(c.Request.Context(), queue)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDrainResultToResponse(result))
}

// ListDeadLettersHandler lists failed jobs of a queue.
// GET /v1/queues/:queue/dead-letters?offset=0&limit=50
func (h *JobHandler) ListDeadLettersHandler(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	jobs, err := h.queueUseCase.ListDeadLetters(c.Request.Context(), c.Param("queue"), page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapJobsToListResponse(jobs))
}

// StatsHandler returns per-queue counts by status and dead-letter counters.
// GET /v1/stats
func (h *JobHandler) StatsHandler(c *gin.Context) {
	stats, err := h.queueUseCase.Stats(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatsToResponse(stats))
}

func (h *JobHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid job id: %w", err), h.logger)
		return uuid.Nil, false
	}
	return id, true
}
