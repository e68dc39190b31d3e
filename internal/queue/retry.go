package queue

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const sqliteBusyCode = 5

// busyPolicy bounds how long a write waits out a locked database.
type busyPolicy struct {
	attempts int
	initial  time.Duration
	ceiling  time.Duration
}

var writeBusyPolicy = busyPolicy{attempts: 5, initial: 10 * time.Millisecond, ceiling: 200 * time.Millisecond}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// do runs op until it succeeds, fails with a non-busy error, or the
// attempts run out. The wait doubles up to the ceiling.
func (p busyPolicy) do(ctx context.Context, op func() error) error {
	wait := p.initial
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isSQLiteBusy(err) || attempt >= p.attempts {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, p.ceiling)
	}
}

func retryOnBusy(ctx context.Context, op func() error) error {
	return writeBusyPolicy.do(ensureContext(ctx), op)
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}
