package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"unwrapped/internal/api"
	"unwrapped/internal/logging"
	"unwrapped/internal/services"
)

// DefaultInterval is the pause between progress queries.
const DefaultInterval = time.Second

// notFoundReason is reported when the service does not know the job.
const notFoundReason = "render job not found"

// ErrStarted is returned when Run is called on a poller that already ran.
var ErrStarted = errors.New("poller already started")

// State is the client-side view of a render job.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Snapshot is the observable poller state.
type Snapshot struct {
	State     State
	JobState  api.JobState
	Progress  float64
	URL       string
	Error     string
	Polls     int
	LastError string
}

// ProgressSource answers progress queries; *renderclient.Client satisfies it.
type ProgressSource interface {
	Progress(ctx context.Context, req api.ProgressRequest) (*api.JobStatus, error)
}

// Option customizes a Poller.
type Option func(*Poller)

// WithInterval sets the pause between queries.
func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithInitialDelay postpones the first query. By default the first query is
// issued immediately.
func WithInitialDelay(delay time.Duration) Option {
	return func(p *Poller) {
		if delay > 0 {
			p.initialDelay = delay
		}
	}
}

// WithLogger sets the logger used for transport errors and transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// OnUpdate registers a callback invoked from the poll goroutine after every
// state change.
func OnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

// Poller queries one job's progress until it finishes.
type Poller struct {
	source   ProgressSource
	ref      api.ProgressRequest
	interval time.Duration
	logger   *slog.Logger
	onUpdate func(Snapshot)

	initialDelay time.Duration

	mu   sync.RWMutex
	snap Snapshot
}

// New constructs an idle poller for ref.
func New(source ProgressSource, ref api.ProgressRequest, opts ...Option) *Poller {
	p := &Poller{
		source:   source,
		ref:      ref,
		interval: DefaultInterval,
		snap:     Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.logger = logging.NewComponentLogger(p.logger, "poller")
	return p
}

// Snapshot returns the current state. Safe for concurrent use.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Run polls until the job is terminal or ctx is cancelled. A terminal state
// returns a nil error; cancellation returns ctx.Err() with the last snapshot.
func (p *Poller) Run(ctx context.Context) (Snapshot, error) {
	if !p.transition(func(s *Snapshot) bool {
		if s.State != StateIdle {
			return false
		}
		s.State = StatePolling
		return true
	}) {
		return p.Snapshot(), ErrStarted
	}

	timer := time.NewTimer(p.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return p.Snapshot(), ctx.Err()
		case <-timer.C:
		}

		status, err := p.source.Progress(ctx, p.ref)
		if ctx.Err() != nil {
			return p.Snapshot(), ctx.Err()
		}
		p.apply(status, err)

		if snap := p.Snapshot(); snap.State.IsTerminal() {
			return snap, nil
		}
		timer.Reset(p.interval)
	}
}

func (p *Poller) apply(status *api.JobStatus, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		p.transition(func(s *Snapshot) bool {
			s.Polls++
			s.State = StateFailed
			s.Error = notFoundReason
			return true
		})
		p.logger.Info("render job not found",
			logging.Event("poll_job_not_found"),
			logging.String(logging.FieldUsername, p.ref.Username),
		)
	case err != nil:
		p.transition(func(s *Snapshot) bool {
			s.Polls++
			s.LastError = err.Error()
			return true
		})
		logging.WarnWithContext(p.logger, "progress query failed; retrying", "poll_query_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the render service is reachable"),
			logging.String(logging.FieldImpact, "progress display is stale until the next successful query"),
		)
	case status == nil:
		p.transition(func(s *Snapshot) bool {
			s.Polls++
			s.LastError = "empty progress reply"
			return true
		})
	default:
		p.transition(func(s *Snapshot) bool {
			s.Polls++
			s.LastError = ""
			s.JobState = status.State
			switch status.State {
			case api.StateDone:
				s.State = StateSucceeded
				s.Progress = 1
				s.URL = status.URL
			case api.StateFailed:
				s.State = StateFailed
				s.Error = status.Error
				if s.Error == "" {
					s.Error = "render failed"
				}
			case api.StateRendering:
				s.Progress = status.Fraction()
			}
			return true
		})
	}
}

// transition mutates the snapshot unless it is terminal and publishes the
// result to the update callback.
func (p *Poller) transition(fn func(*Snapshot) bool) bool {
	p.mu.Lock()
	if p.snap.State.IsTerminal() || !fn(&p.snap) {
		p.mu.Unlock()
		return false
	}
	snap := p.snap
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
	return true
}
