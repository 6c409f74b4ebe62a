package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/publishq/internal/errors"
	"github.com/allisson/publishq/internal/httputil"
	"github.com/allisson/publishq/internal/publish/domain"
	"github.com/allisson/publishq/internal/publish/http/dto"
	"github.com/allisson/publishq/internal/publish/service"
	publishUseCase "github.com/allisson/publishq/internal/publish/usecase"
	customValidation "github.com/allisson/publishq/internal/validation"
)

const (
	// SignatureHeader carries "sha256=<hex>" over the raw callback body.
	SignatureHeader = "X-Publishq-Signature"

	maxCallbackBodyBytes = 1 << 20
)

// CallbackHandler receives out-of-band notifications from platforms.
type CallbackHandler struct {
	reconcileUseCase publishUseCase.ReconcileUseCase
	verifier         service.SignatureVerifier
	logger           *slog.Logger
	now              func() time.Time
}

// NewCallbackHandler creates a callback handler. A nil verifier accepts unsigned callbacks.
func NewCallbackHandler(
	reconcileUseCase publishUseCase.ReconcileUseCase,
	verifier service.SignatureVerifier,
	logger *slog.Logger,
) *CallbackHandler {
	return &CallbackHandler{
		reconcileUseCase: reconcileUseCase,
		verifier:         verifier,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// IngestHandler applies a platform callback to its publish request.
// POST /v1/callbacks/:platform - Returns 202 Accepted with the reconcile outcome,
// including for duplicate and unmatched callbacks.
func (h *CallbackHandler) IngestHandler(c *gin.Context) {
	platform := strings.ToLower(strings.TrimSpace(c.Param("platform")))
	if err := customValidation.Name.Validate(platform); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBodyBytes))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("failed to read callback body: %w", err), h.logger)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(platform, body, c.GetHeader(SignatureHeader)); err != nil {
			h.logger.Warn("rejected callback with invalid signature",
				slog.String("platform", platform),
				slog.String("client_ip", c.ClientIP()))
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
	}

	var req dto.CallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.HandleValidationErrorGin(
			c,
			apperrors.Wrap(domain.ErrInvalidCallback, err.Error()),
			h.logger,
		)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	outcome, err := h.reconcileUseCase.IngestCallback(c.Request.Context(), req.ToEvent(platform, h.now()))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, dto.CallbackResponse{Outcome: string(outcome)})
}
