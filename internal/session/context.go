package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"unwrapped/internal/composition"
	"unwrapped/internal/profile"
	"unwrapped/internal/services"
)

var (
	// ErrAlreadySubmitted is returned by a second Run on the same Context.
	ErrAlreadySubmitted = errors.New("session already submitted a render")
	// ErrClosed is returned when a closed Context is used.
	ErrClosed = errors.New("session closed")
)

// Context is the load-once, read-only state of one viewer session.
type Context struct {
	username string
	memo     *composition.Memo

	mu     sync.RWMutex
	stats  *profile.Stats
	closed bool

	submitted atomic.Bool
}

// Load fetches the statistics for username from source. A missing record is
// not an error; the session then derives nothing and renders NotFound.
func Load(ctx context.Context, source profile.Source, username string) (*Context, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, services.Wrap(services.ErrValidation, "session", "load", "username is required", nil)
	}
	if source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "load", "profile source is required", nil)
	}
	stats, err := source.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return NewContext(username, stats), nil
}

// NewContext wraps an already fetched record. stats may be nil.
func NewContext(username string, stats *profile.Stats) *Context {
	return &Context{
		username: strings.TrimSpace(username),
		stats:    stats,
		memo:     composition.NewMemo(nil),
	}
}

// Username returns the identity the session was loaded for.
func (c *Context) Username() string {
	return c.username
}

// Stats returns the loaded record, or nil when none exists or the session is
// closed.
func (c *Context) Stats() *profile.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	return c.stats
}

// Parameters derives the composition parameters, memoized for the session.
func (c *Context) Parameters() *composition.Parameters {
	return c.memo.Derive(c.Stats())
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close discards the loaded record.
func (c *Context) Close() {
	c.mu.Lock()
	c.stats = nil
	c.closed = true
	c.mu.Unlock()
}

func (c *Context) markSubmitted() bool {
	return c.submitted.CompareAndSwap(false, true)
}
