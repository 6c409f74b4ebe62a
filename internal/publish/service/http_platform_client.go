package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	jobDomain "github.com/allisson/publishq/internal/job/domain"
)

// ErrCircuitOpen is returned while the breaker rejects calls. It is transient.
var ErrCircuitOpen = errors.New("platform circuit open")

// maxResponseBytes bounds how much of a platform response is read.
const maxResponseBytes = 1 << 20

// HTTPPlatformClient posts to a platform publishing gateway over HTTP.
type HTTPPlatformClient struct {
	platform string
	baseURL  string
	client   *http.Client
	breaker  *CircuitBreaker
	logger   *slog.Logger
}

// NewHTTPPlatformClient creates a client for platform behind baseURL.
func NewHTTPPlatformClient(
	platform, baseURL string,
	timeout time.Duration,
	breaker *CircuitBreaker,
	logger *slog.Logger,
) *HTTPPlatformClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(platform, 0, 0, logger)
	}
	return &HTTPPlatformClient{
		platform: platform,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		breaker:  breaker,
		logger:   logger,
	}
}

type publishPostRequest struct {
	RequestID  string         `json:"request_id"`
	AccountRef string         `json:"account_ref"`
	ContentRef string         `json:"content_ref"`
	Caption    string         `json:"caption"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Publish posts the content and returns the provisional post id.
func (c *HTTPPlatformClient) Publish(ctx context.Context, input *PublishInput) (*PublishAck, error) {
	ack, err := c.breaker.Execute(func() (*PublishAck, error) {
		return c.post(ctx, input)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, jobDomain.NewTransientError(ErrCircuitOpen)
	}
	if err != nil && jobDomain.IsRetryable(err) {
		c.logger.Warn("platform call failed",
			slog.String("platform", c.platform),
			slog.String("publish_request_id", input.RequestID.String()),
			slog.Any("error", err))
	}
	return ack, err
}

func (c *HTTPPlatformClient) post(ctx context.Context, input *PublishInput) (*PublishAck, error) {
	body, err := json.Marshal(publishPostRequest{
		RequestID:  input.RequestID.String(),
		AccountRef: input.AccountRef,
		ContentRef: input.ContentRef,
		Caption:    input.Caption,
		Metadata:   input.Metadata,
	})
	if err != nil {
		return nil, jobDomain.NewPermanentError(fmt.Errorf("failed to encode publish request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/v1/platforms/%s/posts", c.baseURL, url.PathEscape(c.platform))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, jobDomain.NewPermanentError(fmt.Errorf("failed to build platform request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+input.AccessToken)
	req.Header.Set("Idempotency-Key", input.RequestID.String())

	res, err := c.client.Do(req)
	if err != nil {
		return nil, jobDomain.NewTransientError(fmt.Errorf("platform=%s: %w", c.platform, err))
	}
	defer res.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, jobDomain.NewTransientError(fmt.Errorf("platform=%s: failed to read response: %w", c.platform, err))
	}

	if err := classifyStatus(c.platform, res.StatusCode, raw); err != nil {
		return nil, err
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, jobDomain.NewPermanentError(fmt.Errorf("platform=%s: malformed response: %w", c.platform, err))
	}

	postID, _ := decoded["external_post_id"].(string)
	if postID == "" {
		return nil, jobDomain.NewPermanentError(fmt.Errorf("platform=%s: response has no external_post_id", c.platform))
	}

	return &PublishAck{ExternalPostID: postID, Raw: decoded}, nil
}

// classifyStatus maps a response status to the retry taxonomy: throttling and
// server errors are transient, every other non-2xx status is permanent.
func classifyStatus(platform string, status int, body []byte) error {
	if status/100 == 2 {
		return nil
	}

	err := fmt.Errorf("platform=%s status=%d body=%s", platform, status, truncate(body, 256))
	if status == http.StatusTooManyRequests || status >= 500 {
		return jobDomain.NewTransientError(err)
	}
	return jobDomain.NewPermanentError(err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
