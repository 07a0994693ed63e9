// Package docgen sends a résumé to the rendering service and returns the
// rendered document.
package docgen

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
	"strings"
	"time"

	"github.com/google/uuid"

	"resumeRender/internal/metrics"
	"resumeRender/internal/resume"
)

// DefaultPath is the generation endpoint exposed by the rendering service.
const DefaultPath = "/api/v1/resume/pdf"

// maxErrorBodyBytes bounds how much of a failure body is read when looking for a message.
const maxErrorBodyBytes = 64 * 1024

// Doer is the transport used by Client; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client converts one resume.Request into a rendered document per call.
// It holds no mutable state, so concurrent calls are independent.
type Client struct {
	endpoint   string
	httpClient Doer
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.httpClient = d
		}
	}
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for the absolute endpoint URL.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must be an absolute http(s) url", endpoint)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}

	c := &Client{
		endpoint:   parsed.String(),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// EndpointURL joins the service base URL and the endpoint path.
func EndpointURL(baseURL, path string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}
	return baseURL + "/" + strings.TrimLeft(path, "/")
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GenerateDocument posts req as JSON and returns the response body of a 2xx
// reply byte for byte. Every failure is a *GenerationError. There are no
// retries; cancellation and deadlines come from ctx.
func (c *Client) GenerateDocument(ctx context.Context, req resume.Request) ([]byte, error) {
	start := time.Now()
	correlationID := uuid.NewString()
	log := c.logger.With(slog.String("correlation_id", correlationID))

	doc, outcome, err := c.generate(ctx, req, correlationID, log)
	metrics.ObserveGeneration(outcome, time.Since(start))
	if err != nil {
		log.Info("document generation failed",
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	log.Info("document generated", slog.Int("bytes", len(doc)))
	return doc, nil
}

func (c *Client) generate(ctx context.Context, req resume.Request, correlationID string, log *slog.Logger) ([]byte, string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, metrics.OutcomeTransportError, &GenerationError{Message: fmt.Sprintf("encode resume: %v", err), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, metrics.OutcomeTransportError, &GenerationError{Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Correlation-ID", correlationID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, metrics.OutcomeTransportError, &GenerationError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := failureMessage(resp, log)
		return nil, metrics.OutcomeRejected, &GenerationError{Message: msg}
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, metrics.OutcomeTransportError, &GenerationError{Message: fmt.Sprintf("read document: %v", err), Err: err}
	}
	return doc, metrics.OutcomeSuccess, nil
}

// failureMessage prefers a non-empty string "message" from a JSON body and
// falls back to the status code. Read and parse problems only get logged.
func failureMessage(resp *http.Response, log *slog.Logger) string {
	fallback := fmt.Sprintf("Request failed with status %d", resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		log.Debug("read error body failed", slog.Int("status", resp.StatusCode), slog.Any("error", err))
		return fallback
	}

	var body struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		log.Debug("error body is not json", slog.Int("status", resp.StatusCode), slog.Any("error", err))
		return fallback
	}

	if msg, ok := body.Message.(string); ok && msg != "" {
		return msg
	}
	return fallback
}

// Result is the outcome of GenerateAsync: exactly one of Document or Err is set.
type Result struct {
	Document []byte
	Err      error
}

// GenerateAsync runs GenerateDocument in its own goroutine. The returned
// channel receives exactly one Result and is then closed.
func (c *Client) GenerateAsync(ctx context.Context, req resume.Request) <-chan Result {
	out := make(chan Result, 1)
	owned := req.Clone()
	go func() {
		defer close(out)
		doc, err := c.GenerateDocument(ctx, owned)
		out <- Result{Document: doc, Err: err}
	}()
	return out
}

// GenerationError is the only failure GenerateDocument reports. Message is
// meant to be shown to the user as is.
type GenerationError struct {
	Message string
	// Err is the underlying transport error, nil when the service answered
	// with a failure status.
	Err error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError reports whether err carries a *GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
