package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"unwrapped/internal/profile"
)

func lowercaseUsername(username string) string {
	return profile.LowercaseUsername(username)
}

// Enqueue inserts a pending job for the given username.
func (s *Store) Enqueue(ctx context.Context, req NewJob) (*Job, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if strings.TrimSpace(req.ParamsJSON) == "" {
		return nil, errors.New("params are required")
	}
	id := uuid.NewString()
	now := formatTime(time.Now())
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO render_jobs (
            id, username, lowercased_username, fingerprint, params_json,
            status, progress, created_at, requested_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		id,
		username,
		lowercaseUsername(username),
		req.Fingerprint,
		req.ParamsJSON,
		StatusPending,
		now,
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM render_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// LatestForUsername returns the most recently requested job for a username,
// compared case-insensitively. A reused job counts as requested again, so
// this follows what the user asked for last. A missing job returns nil, nil.
func (s *Store) LatestForUsername(ctx context.Context, username string) (*Job, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM render_jobs
         WHERE lowercased_username = ?
         ORDER BY requested_at DESC, rowid DESC LIMIT 1`,
		lowercaseUsername(username),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest job: %w", err)
	}
	return job, nil
}

// MarkRequested stamps id as the user's latest request. It returns false when
// the job no longer exists.
func (s *Store) MarkRequested(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE render_jobs SET requested_at = ? WHERE id = ?`,
		formatTime(time.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark job requested: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindReusable returns the newest non-failed job for the username whose
// parameters share the fingerprint, or nil when a new job is needed.
func (s *Store) FindReusable(ctx context.Context, username, fingerprint string) (*Job, error) {
	if fingerprint == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM render_jobs
         WHERE lowercased_username = ? AND fingerprint = ? AND status != ?
         ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		lowercaseUsername(username),
		fingerprint,
		StatusFailed,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reusable job: %w", err)
	}
	return job, nil
}

// List returns jobs newest first, optionally filtered.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Job, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Username != "" {
		clauses = append(clauses, "lowercased_username = ?")
		args = append(args, lowercaseUsername(filter.Username))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	query := `SELECT ` + jobColumns + ` FROM render_jobs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
