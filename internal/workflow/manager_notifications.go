package workflow

import (
	"context"

	"unwrapped/internal/logging"
	"unwrapped/internal/notifications"
	"unwrapped/internal/queue"
)

const (
	completedEvent = notifications.EventRenderCompleted
	failedEvent    = notifications.EventRenderFailed
)

func (m *Manager) notify(ctx context.Context, job *queue.Job, event notifications.Event, url, reason string) {
	if m.notifier == nil || job == nil {
		return
	}
	payload := notifications.Payload{"username": job.Username, "jobId": job.ID}
	if url != "" {
		payload["url"] = url
	}
	if reason != "" {
		payload["error"] = reason
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(m.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "render result not pushed"),
		)
	}
}
