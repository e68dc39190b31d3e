package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"unwrapped/internal/api"
	"unwrapped/internal/config"
	"unwrapped/internal/deps"
	"unwrapped/internal/logging"
	"unwrapped/internal/preflight"
	"unwrapped/internal/queue"
	"unwrapped/internal/server"
	"unwrapped/internal/workflow"
)

// ErrAlreadyRunning reports that another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another unwrapped daemon instance is already running")

// Daemon runs the render worker and the HTTP API under a single-instance
// file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	server   *server.Server
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
}

// New wires the render and job services into the API server.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lock:     flock.New(cfg.LockPath()),
	}
	d.server = server.New(cfg, server.Deps{
		Renders: api.NewRenderService(store, logger, wf.Wake),
		Jobs:    api.NewJobService(store),
		Status:  d,
	}, logger)
	return d, nil
}

// Start takes the lock and starts the worker and then the server. A failure
// part way unwinds whatever already started.
func (d *Daemon) Start(ctx context.Context) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	var undo []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()
	undo = append(undo, func() { _ = d.lock.Unlock() }, cancel)

	if err := d.workflow.Start(runCtx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	undo = append(undo, d.workflow.Stop)
	if err := d.server.Start(runCtx); err != nil {
		return fmt.Errorf("start api server: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("unwrapped daemon started",
		logging.Event("daemon_started"),
		logging.String("lock", d.lock.Path()),
		logging.String("api", d.server.Addr()),
	)
	d.warnPreflight(ctx)
	return nil
}

// Stop shuts down the server, then the worker, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Swap(false) {
		return
	}
	d.server.Stop()
	d.cancel()
	d.cancel = nil
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("unwrapped daemon stopped", logging.Event("daemon_stopped"))
}

// Close stops the daemon and closes the job store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Addr returns the API listen address while running.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Status implements server.StatusProvider.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		APIBind:      d.server.Addr(),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lock.Path(),
		Workflow:     d.workflowStatus(ctx),
		Database:     d.databaseStatus(ctx),
		Dependencies: dependencyStatuses(preflight.CheckSystemDeps(d.cfg)),
	}
}

func (d *Daemon) workflowStatus(ctx context.Context) api.WorkflowStatus {
	summary := d.workflow.Status(ctx)
	status := api.WorkflowStatus{
		Running:   summary.Running,
		JobStats:  api.MergeJobStats(summary.JobStats),
		LastError: summary.LastError,
	}
	if summary.CurrentJob != nil {
		current := api.FromJob(summary.CurrentJob)
		status.CurrentJob = &current
	}
	return status
}

func (d *Daemon) databaseStatus(ctx context.Context) api.DatabaseStatus {
	health, err := d.store.CheckHealth(ctx)
	status := api.DatabaseStatus{
		SchemaVersion: health.SchemaVersion,
		Integrity:     health.IntegrityCheck,
		TotalJobs:     health.TotalJobs,
		Error:         health.Error,
	}
	if err != nil && status.Error == "" {
		status.Error = err.Error()
	}
	return status
}

func dependencyStatuses(statuses []deps.Status) []api.DependencyStatus {
	out := make([]api.DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

func (d *Daemon) warnPreflight(ctx context.Context) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run unwrapped doctor for details"),
			logging.String(logging.FieldImpact, "renders may fail until resolved"),
		)
	}
}
