package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"unwrapped/internal/logging"
	"unwrapped/internal/queue"
)

// HeartbeatMonitor keeps the rendering job's heartbeat fresh and fails jobs
// whose heartbeat is older than the timeout.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewHeartbeatMonitor returns a monitor. A zero interval disables keepalives
// and a zero timeout disables stale sweeps.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow-heartbeat"),
		interval: interval,
		timeout:  timeout,
	}
}

// FailStaleJobs marks rendering jobs without a recent heartbeat as failed.
func (h *HeartbeatMonitor) FailStaleJobs(ctx context.Context) error {
	if h.timeout <= 0 {
		return nil
	}
	failed, err := h.store.FailStale(ctx, time.Now().Add(-h.timeout))
	if err != nil {
		return err
	}
	if failed > 0 {
		h.logger.Info("failed stale render jobs",
			logging.Int64("count", failed),
			logging.Event("heartbeat_stale_failed"),
		)
	}
	return nil
}

// Keepalive refreshes jobID's heartbeat every interval until the returned
// stop function is called. stop blocks until the refresher has exited.
func (h *HeartbeatMonitor) Keepalive(ctx context.Context, jobID string) (stop func()) {
	if h.interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.beat(ctx, jobID)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (h *HeartbeatMonitor) beat(ctx context.Context, jobID string) {
	logger := logging.WithContext(ctx, h.logger)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := h.store.UpdateHeartbeat(ctx, jobID)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		default:
			logger.Warn("heartbeat update failed", logging.Error(err))
		}
	}
}
