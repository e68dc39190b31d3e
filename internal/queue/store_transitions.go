package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimNext moves the oldest pending job to rendering and returns it.
// It returns nil, nil when nothing is pending.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	var claimed *Job
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(
			ctx,
			`SELECT `+jobColumns+` FROM render_jobs WHERE status = ? ORDER BY created_at, rowid LIMIT 1`,
			StatusPending,
		)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			claimed = nil
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		stamp := formatTime(now)
		res, err := tx.ExecContext(
			ctx,
			`UPDATE render_jobs
             SET status = ?, progress = 0, started_at = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusRendering, stamp, stamp, stamp, job.ID, StatusPending,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			claimed = nil
			return nil
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		job.Status = StatusRendering
		job.Progress = 0
		job.StartedAt = &now
		job.LastHeartbeat = &now
		job.UpdatedAt = now
		claimed = job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return claimed, nil
}

// UpdateProgress records render progress as a fraction in [0,1].
func (s *Store) UpdateProgress(ctx context.Context, id string, progress float64) error {
	progress = clampFraction(progress)
	stamp := formatTime(time.Now())
	return s.mutate(ctx, id, "update progress",
		`UPDATE render_jobs SET progress = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		progress, stamp, stamp, id, StatusPending, StatusRendering,
	)
}

// MarkDone finishes a job successfully.
func (s *Store) MarkDone(ctx context.Context, id, outputPath, url string) error {
	stamp := formatTime(time.Now())
	return s.mutate(ctx, id, "mark done",
		`UPDATE render_jobs
         SET status = ?, progress = 1, output_path = ?, url = ?, error_message = NULL,
             finished_at = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusDone, nullableString(outputPath), url, stamp, stamp, id, StatusPending, StatusRendering,
	)
}

// MarkFailed finishes a job with an error message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	if message == "" {
		message = "render failed"
	}
	stamp := formatTime(time.Now())
	return s.mutate(ctx, id, "mark failed",
		`UPDATE render_jobs
         SET status = ?, error_message = ?, finished_at = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed, message, stamp, stamp, id, StatusPending, StatusRendering,
	)
}

// UpdateHeartbeat updates the last heartbeat timestamp for a rendering job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	stamp := formatTime(time.Now())
	return s.mutate(ctx, id, "update heartbeat",
		`UPDATE render_jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		stamp, stamp, id, StatusRendering,
	)
}

// FailStale marks rendering jobs whose heartbeat predates cutoff as failed.
func (s *Store) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	stamp := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs
         SET status = ?, error_message = 'render worker stopped responding',
             finished_at = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusFailed, stamp, stamp, StatusRendering, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckRendering returns jobs left in rendering by a previous process to pending.
func (s *Store) ResetStuckRendering(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE render_jobs
         SET status = ?, progress = 0, started_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending, formatTime(time.Now()), StatusRendering,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// mutate runs a guarded update and distinguishes a terminal row from a missing one.
func (s *Store) mutate(ctx context.Context, id, operation, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if job == nil {
		return fmt.Errorf("%s %s: %w", operation, id, ErrNotFound)
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%s %s (%s): %w", operation, id, job.Status, ErrTerminal)
	}
	return nil
}

func clampFraction(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}
