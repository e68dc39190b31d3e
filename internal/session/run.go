package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"unwrapped/internal/api"
	"unwrapped/internal/composition"
	"unwrapped/internal/logging"
	"unwrapped/internal/poller"
	"unwrapped/internal/renderclient"
	"unwrapped/internal/services"
)

// Ordering selects how polling relates to submission.
type Ordering int

const (
	// OrderConcurrent starts polling without waiting for the submission.
	OrderConcurrent Ordering = iota
	// OrderAfterSubmit starts polling once the submission has settled.
	OrderAfterSubmit
)

// String returns the flag spelling of o.
func (o Ordering) String() string {
	if o == OrderAfterSubmit {
		return "after-submit"
	}
	return "concurrent"
}

// ViewKind is the state the caller displays.
type ViewKind string

const (
	ViewNotFound  ViewKind = "not_found"
	ViewPending   ViewKind = "pending"
	ViewFailed    ViewKind = "failed"
	ViewSucceeded ViewKind = "succeeded"
)

// View is the outcome of a session run.
type View struct {
	Kind       ViewKind
	URL        string
	Error      string
	Params     *composition.Parameters
	Ack        *api.RenderAck
	SubmitErr  error
	Snapshot   poller.Snapshot
	Submission time.Duration
}

// Err maps a failed view to its error marker, nil otherwise.
func (v View) Err() error {
	switch v.Kind {
	case ViewNotFound:
		return services.ErrNoData
	case ViewFailed:
		if v.Snapshot.JobState == "" {
			return fmt.Errorf("%w: %s", services.ErrJobNotFound, v.Error)
		}
		return fmt.Errorf("%w: %s", services.ErrJobFailed, v.Error)
	default:
		return nil
	}
}

// Client is the render service as seen by a session.
type Client interface {
	renderclient.Submitter
	poller.ProgressSource
}

// Deps are the collaborators of Run.
type Deps struct {
	Client Client
	Logger *slog.Logger
}

// Options tune a run.
type Options struct {
	Ordering     Ordering
	PollInterval time.Duration
	Rocket       *composition.Rocket
	OnUpdate     func(poller.Snapshot)
}

// Run derives, submits, and polls for sc. The returned view is always
// displayable; the error is non-nil only when the run could not start or ctx
// ended while the job was still pending.
func Run(ctx context.Context, sc *Context, deps Deps, opts Options) (View, error) {
	if sc == nil || sc.Closed() {
		return View{Kind: ViewNotFound}, ErrClosed
	}
	if deps.Client == nil {
		return View{Kind: ViewNotFound}, services.Wrap(services.ErrConfiguration, "session", "run", "render client is required", nil)
	}
	logger := logging.WithContext(services.WithUsername(ctx, sc.Username()), logging.NewComponentLogger(deps.Logger, "session"))

	params := sc.Parameters()
	if params == nil {
		logger.Info("no profile data for user", logging.Event("session_not_found"))
		return View{Kind: ViewNotFound}, nil
	}
	if opts.Rocket != nil {
		params = params.WithRocket(*opts.Rocket)
	}
	if !sc.markSubmitted() {
		return View{Kind: ViewPending, Params: params}, ErrAlreadySubmitted
	}

	props, err := json.Marshal(params)
	if err != nil {
		return View{Kind: ViewFailed, Params: params, Error: err.Error()}, fmt.Errorf("encode parameters: %w", err)
	}
	req := api.RenderRequest{InputProps: props, Username: params.Login}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = poller.DefaultInterval
	}

	view := View{Params: params}
	submitted := make(chan struct{})
	started := time.Now()
	go func() {
		defer close(submitted)
		view.Ack, view.SubmitErr = renderclient.SubmitBestEffort(ctx, deps.Client, req, logger)
		view.Submission = time.Since(started)
	}()

	ref := api.ProgressRequest{Username: params.Login}
	pollOpts := []poller.Option{
		poller.WithInterval(interval),
		poller.WithLogger(logger),
		poller.OnUpdate(opts.OnUpdate),
	}
	switch opts.Ordering {
	case OrderAfterSubmit:
		select {
		case <-submitted:
		case <-ctx.Done():
			<-submitted
			view.Kind = ViewPending
			return view, ctx.Err()
		}
		if view.Ack != nil && view.Ack.JobID != "" {
			ref = api.ProgressRequest{JobID: view.Ack.JobID}
		}
	default:
		pollOpts = append(pollOpts, poller.WithInitialDelay(interval))
	}

	snap, pollErr := poller.New(deps.Client, ref, pollOpts...).Run(ctx)
	<-submitted
	view.Snapshot = snap

	if pollErr != nil {
		view.Kind = ViewPending
		if errors.Is(pollErr, context.Canceled) || errors.Is(pollErr, context.DeadlineExceeded) {
			return view, pollErr
		}
		return view, fmt.Errorf("poll render progress: %w", pollErr)
	}

	switch snap.State {
	case poller.StateSucceeded:
		view.Kind = ViewSucceeded
		view.URL = snap.URL
		logger.Info("render ready",
			logging.Event("session_succeeded"),
			logging.String("url", snap.URL),
		)
	default:
		view.Kind = ViewFailed
		view.Error = snap.Error
		logging.WarnWithContext(logger, "render did not complete", "session_failed",
			logging.String("reason", snap.Error),
			logging.String(logging.FieldErrorHint, "inspect the job with unwrapped jobs show"),
		)
	}
	return view, nil
}
