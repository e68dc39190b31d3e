package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"unwrapped/internal/config"
	"unwrapped/internal/notifications"
)

type ntfyMessage struct {
	Title    string
	Tags     string
	Priority string
	Body     string
}

// ntfyRecorder stands in for an ntfy topic and keeps every message it gets.
type ntfyRecorder struct {
	server   *httptest.Server
	messages []ntfyMessage
}

func newNtfyRecorder(t *testing.T) *ntfyRecorder {
	t.Helper()
	rec := &ntfyRecorder{}
	rec.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.messages = append(rec.messages, ntfyMessage{
			Title:    r.Header.Get("Title"),
			Tags:     r.Header.Get("Tags"),
			Priority: r.Header.Get("Priority"),
			Body:     string(body),
		})
	}))
	t.Cleanup(rec.server.Close)
	return rec
}

func (r *ntfyRecorder) service(mutate func(*config.Notifications)) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = r.server.URL
	cfg.Notifications.RequestTimeout = 5
	if mutate != nil {
		mutate(&cfg.Notifications)
	}
	return notifications.NewService(&cfg)
}

func TestNewServiceWithoutTopicDropsEvents(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventRenderCompleted, notifications.Payload{"username": "ada"})
	if err != nil {
		t.Fatalf("Publish without topic: %v", err)
	}
}

func TestPublishFormatsRenderEvents(t *testing.T) {
	cases := map[string]struct {
		event   notifications.Event
		payload notifications.Payload
		want    ntfyMessage
	}{
		"completed": {
			event:   notifications.EventRenderCompleted,
			payload: notifications.Payload{"username": "ada", "url": "https://cdn.example.com/ada.mp4"},
			want: ntfyMessage{
				Title: "Unwrapped - Render Complete",
				Tags:  "unwrapped,render,completed",
				Body:  "🎬 Video ready for ada\nhttps://cdn.example.com/ada.mp4",
			},
		},
		"failed": {
			event:   notifications.EventRenderFailed,
			payload: notifications.Payload{"username": "linus", "error": "renderer exited 1"},
			want: ntfyMessage{
				Title:    "Unwrapped - Render Failed",
				Tags:     "unwrapped,render,error",
				Priority: "high",
				Body:     "❌ Render failed for linus: renderer exited 1",
			},
		},
		"test": {
			event: notifications.EventTest,
			want: ntfyMessage{
				Title:    "Unwrapped - Test",
				Tags:     "unwrapped,test",
				Priority: "low",
				Body:     "🧪 Notification system test",
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := newNtfyRecorder(t)
			if err := rec.service(nil).Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if len(rec.messages) != 1 {
				t.Fatalf("expected one message, got %d", len(rec.messages))
			}
			if got := rec.messages[0]; got != tc.want {
				t.Fatalf("message mismatch\n got: %+v\nwant: %+v", got, tc.want)
			}
		})
	}
}

func TestPublishSkipsDisabledAndUnknownEvents(t *testing.T) {
	rec := newNtfyRecorder(t)
	svc := rec.service(func(n *config.Notifications) {
		n.RenderCompleted = false
		n.RenderFailed = false
	})
	for _, event := range []notifications.Event{
		notifications.EventRenderCompleted,
		notifications.EventRenderFailed,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"username": "ignored"}); err != nil {
			t.Fatalf("Publish %s: %v", event, err)
		}
	}
	if len(rec.messages) != 0 {
		t.Fatalf("expected no messages, got %+v", rec.messages)
	}
}

func TestPublishSurfacesTopicErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
