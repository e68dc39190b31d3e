package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"unwrapped/internal/composition"
	"unwrapped/internal/logging"
	"unwrapped/internal/queue"
	"unwrapped/internal/services"
)

// JobStore is the persistence surface RenderService needs.
type JobStore interface {
	Enqueue(ctx context.Context, req queue.NewJob) (*queue.Job, error)
	GetByID(ctx context.Context, id string) (*queue.Job, error)
	LatestForUsername(ctx context.Context, username string) (*queue.Job, error)
	FindReusable(ctx context.Context, username, fingerprint string) (*queue.Job, error)
	MarkRequested(ctx context.Context, id string) (bool, error)
}

// RenderService implements the render and progress endpoints.
type RenderService struct {
	store  JobStore
	logger *slog.Logger
	wake   func()
}

// NewRenderService constructs a RenderService. wake, when non-nil, is called
// after a new job is enqueued so the worker can start without waiting for its
// next poll.
func NewRenderService(store JobStore, logger *slog.Logger, wake func()) *RenderService {
	return &RenderService{
		store:  store,
		logger: logging.NewComponentLogger(logger, "render-service"),
		wake:   wake,
	}
}

// Submit validates the request and enqueues a render job, reusing an
// identical job that has not failed.
func (s *RenderService) Submit(ctx context.Context, req RenderRequest) (*RenderAck, error) {
	if err := req.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "render-service", "submit", err.Error(), nil)
	}
	var params composition.Parameters
	if err := json.Unmarshal(req.InputProps, &params); err != nil {
		return nil, services.Wrap(services.ErrValidation, "render-service", "submit", "decode inputProps", err)
	}
	if err := params.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "render-service", "submit", "invalid inputProps", err)
	}
	canonical, err := json.Marshal(&params)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "render-service", "submit", "encode inputProps", err)
	}
	fingerprint, err := composition.Fingerprint(&params)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "render-service", "submit", "fingerprint inputProps", err)
	}
	username := strings.TrimSpace(req.Username)

	existing, err := s.store.FindReusable(ctx, username, fingerprint)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "render-service", "submit", "lookup existing job", err)
	}
	if existing != nil {
		// Progress by username must resolve to this job, not a newer one
		// with different parameters.
		marked, err := s.store.MarkRequested(ctx, existing.ID)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "render-service", "submit", "mark reused job", err)
		}
		if !marked {
			existing = nil
		}
	}
	if existing != nil {
		s.logger.Info("render request reuses existing job",
			logging.JobID(existing.ID),
			logging.Username(username),
			logging.String("state", string(existing.Status)),
		)
		return &RenderAck{JobID: existing.ID, Username: existing.Username, State: JobState(existing.Status), Reused: true}, nil
	}

	job, err := s.store.Enqueue(ctx, queue.NewJob{
		Username:    username,
		Fingerprint: fingerprint,
		ParamsJSON:  string(canonical),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "render-service", "submit", "enqueue job", err)
	}
	s.logger.Info("render job enqueued",
		logging.JobID(job.ID),
		logging.Username(username),
		logging.Event("render_enqueued"),
	)
	if s.wake != nil {
		s.wake()
	}
	return &RenderAck{JobID: job.ID, Username: job.Username, State: JobState(job.Status)}, nil
}

// Progress reports the status of the job named by id, or of the latest job
// for the username. Unknown jobs return services.ErrJobNotFound.
func (s *RenderService) Progress(ctx context.Context, req ProgressRequest) (*JobStatus, error) {
	if err := req.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "render-service", "progress", err.Error(), nil)
	}
	var (
		job *queue.Job
		err error
	)
	if id := strings.TrimSpace(req.JobID); id != "" {
		job, err = s.store.GetByID(ctx, id)
	} else {
		job, err = s.store.LatestForUsername(ctx, req.Username)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "render-service", "progress", "lookup job", err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", services.ErrJobNotFound, describeRef(req))
	}
	status := StatusFromJob(job)
	return &status, nil
}

func describeRef(req ProgressRequest) string {
	if req.JobID != "" {
		return "job " + req.JobID
	}
	return "user " + req.Username
}
