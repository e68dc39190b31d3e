package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"unwrapped/internal/config"
)

const (
	userAgent             = "Unwrapped-Go/0.1.0"
	defaultRequestTimeout = 10 * time.Second
)

// Event names a notification type.
type Event string

const (
	EventRenderCompleted Event = "render_completed"
	EventRenderFailed    Event = "render_failed"
	EventTest            Event = "test"
)

// Payload carries event fields such as username, url, and error.
type Payload map[string]any

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService posts to the configured ntfy topic URL. Without a topic every
// event is dropped.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &ntfyService{
		topic:  strings.TrimSpace(n.NtfyTopic),
		client: &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRenderCompleted: n.RenderCompleted,
			EventRenderFailed:    n.RenderFailed,
			EventTest:            true,
		},
	}
}

type ntfyService struct {
	topic   string
	client  *http.Client
	enabled map[Event]bool
}

// Publish drops disabled and unknown events without error.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := compose(event, payload)
	if !ok {
		return nil
	}
	return n.post(ctx, msg)
}

func (n *ntfyService) post(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topic, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	header := req.Header
	header.Set("User-Agent", userAgent)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Title", msg.title)
	header.Set("Tags", strings.Join(msg.tags, ","))
	if msg.priority != "" {
		header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
