package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"unwrapped/internal/logging"
	"unwrapped/internal/queue"
	"unwrapped/internal/render"
	"unwrapped/internal/services"
)

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithUsername(jobCtx, job.Username)
	logger := logging.WithContext(jobCtx, m.logger)

	m.setCurrentJob(job)
	defer m.setCurrentJob(nil)

	logger.Info("render started", logging.Event("render_started"))
	started := time.Now()

	stopHeartbeat := m.heartbeat.Keepalive(jobCtx, job.ID)

	tracker := newProgressTracker(jobCtx, m, job.ID, logger)
	result, renderErr := m.renderer.Render(jobCtx, render.Job{
		ID:       job.ID,
		Username: job.Username,
		Props:    json.RawMessage(job.ParamsJSON),
	}, tracker.update)

	stopHeartbeat()

	if renderErr != nil && ctx.Err() != nil {
		logger.Info("daemon shutting down, render interrupted; job will be requeued on next start")
		return ctx.Err()
	}

	if renderErr != nil {
		m.handleRenderFailure(ctx, job, renderErr)
		return renderErr
	}

	if err := m.store.MarkDone(ctx, job.ID, result.OutputPath, result.URL); err != nil {
		m.setLastError(err)
		if errors.Is(err, queue.ErrTerminal) {
			logging.WarnWithContext(logger, "render finished after job was already closed", "render_late_completion",
				logging.Error(err),
				logging.String(logging.FieldImpact, "video kept on disk but not attached to the job"),
			)
			return nil
		}
		logging.ErrorWithContext(logger, "failed to persist render completion", "render_persist_failed", logging.Error(err))
		return err
	}
	logger.Info("render completed",
		logging.Event("render_completed"),
		logging.String("url", result.URL),
		logging.Duration("elapsed", time.Since(started)),
	)
	m.recordFinished(ctx, job.ID)
	m.notify(ctx, job, completedEvent, result.URL, "")
	return nil
}

func (m *Manager) handleRenderFailure(ctx context.Context, job *queue.Job, renderErr error) {
	logger := logging.WithContext(services.WithJobID(ctx, job.ID), m.logger)
	message := services.FailureMessage(renderErr)
	m.setLastError(renderErr)

	logging.ErrorWithContext(logger, "render failed", "render_failed",
		logging.Error(renderErr),
		logging.String(logging.FieldErrorHint, services.FailureKind(renderErr)),
		logging.String(logging.FieldImpact, "client sees failed state"),
	)
	if err := m.store.MarkFailed(ctx, job.ID, message); err != nil && !errors.Is(err, queue.ErrTerminal) {
		logging.ErrorWithContext(logger, "failed to persist render failure", "render_persist_failed", logging.Error(err))
	}
	m.recordFinished(ctx, job.ID)
	m.notify(ctx, job, failedEvent, "", message)
}

// progressTracker throttles store writes and log lines for one job.
type progressTracker struct {
	m       *Manager
	ctx     context.Context
	jobID   string
	logger  *slog.Logger
	sampler *logging.ProgressSampler

	mu      sync.Mutex
	written float64
}

func newProgressTracker(ctx context.Context, m *Manager, jobID string, logger *slog.Logger) *progressTracker {
	return &progressTracker{
		m:       m,
		ctx:     ctx,
		jobID:   jobID,
		logger:  logger,
		sampler: logging.NewProgressSampler(10),
		written: -1,
	}
}

func (p *progressTracker) update(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sampler.ShouldLog(fraction) {
		p.logger.Info("render progress", logging.Float64("progress", fraction))
	}
	if fraction-p.written < progressWriteStep && fraction < 1 {
		return
	}
	if err := p.m.store.UpdateProgress(p.ctx, p.jobID, fraction); err != nil {
		return
	}
	p.written = fraction
}
