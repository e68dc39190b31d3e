package renderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"unwrapped/internal/api"
	"unwrapped/internal/config"
	"unwrapped/internal/logging"
	"unwrapped/internal/services"
)

const maxErrorBody = 4 << 10

// HTTPDoer describes the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client submits render requests and queries job progress.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// New constructs a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// NewFromConfig builds a client from the render and paths sections.
func NewFromConfig(cfg *config.Config) *Client {
	return New(
		cfg.Render.ServiceURL,
		WithToken(cfg.Paths.APIToken),
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
	)
}

// Submit posts req to /api/render.
func (c *Client) Submit(ctx context.Context, req api.RenderRequest) (*api.RenderAck, error) {
	if err := req.Validate(); err != nil {
		return nil, services.Wrap(services.ErrSubmission, "renderclient", "submit", "invalid request", err)
	}
	var ack api.RenderAck
	status, err := c.post(ctx, "/api/render", req, &ack)
	if err != nil {
		message := "request failed"
		if status != 0 {
			message = fmt.Sprintf("service replied %d", status)
		}
		return nil, services.Wrap(services.ErrSubmission, "renderclient", "submit", message, err)
	}
	return &ack, nil
}

// Progress queries /api/progress for the job identified by req.
func (c *Client) Progress(ctx context.Context, req api.ProgressRequest) (*api.JobStatus, error) {
	if err := req.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "renderclient", "progress", "invalid request", err)
	}
	var status api.JobStatus
	code, err := c.post(ctx, "/api/progress", req, &status)
	if code == http.StatusNotFound {
		return nil, services.Wrap(services.ErrJobNotFound, "renderclient", "progress", describeRef(req), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("query render progress: %w", err)
	}
	return &status, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("render service url not configured")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, readError(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

func readError(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var decoded api.ErrorResponse
	if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "empty response"
	}
	return text
}

func describeRef(req api.ProgressRequest) string {
	if req.JobID != "" {
		return "job " + req.JobID
	}
	return "user " + req.Username
}

// Submitter posts render requests; *Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req api.RenderRequest) (*api.RenderAck, error)
}

// SubmitBestEffort submits req and logs a failure instead of stopping the
// caller. The error is still returned so callers can record it.
func SubmitBestEffort(ctx context.Context, client Submitter, req api.RenderRequest, logger *slog.Logger) (*api.RenderAck, error) {
	logger = logging.NewComponentLogger(logger, "renderclient")
	ack, err := client.Submit(ctx, req)
	if err != nil {
		logging.WarnWithContext(logger, "render submission failed; continuing to poll", "render_submit_failed",
			logging.Username(req.Username),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check render service url and that the service is running"),
			logging.String(logging.FieldImpact, "progress polling may report the job as not found"),
		)
		return nil, err
	}
	logger.Info("render submitted",
		logging.Event("render_submitted"),
		logging.JobID(ack.JobID),
		logging.Bool("reused", ack.Reused),
	)
	return ack, nil
}
