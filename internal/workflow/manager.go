package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"unwrapped/internal/config"
	"unwrapped/internal/logging"
	"unwrapped/internal/notifications"
	"unwrapped/internal/queue"
	"unwrapped/internal/render"
)

// progressWriteStep is the minimum progress change persisted to the store.
const progressWriteStep = 0.01

// Manager coordinates render job processing.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	renderer      render.Renderer
	logger        *slog.Logger
	notifier      notifications.Service
	pollInterval  time.Duration
	retryInterval time.Duration

	heartbeat *HeartbeatMonitor
	wake      chan struct{}

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	currentJob *queue.Job
	lastJob    *queue.Job
}

// NewManager constructs a render worker. A nil notifier publishes to the
// configured ntfy topic.
func NewManager(cfg *config.Config, store *queue.Store, renderer render.Renderer, logger *slog.Logger, notifier notifications.Service) *Manager {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	logger = logging.NewComponentLogger(logger, "workflow-manager")
	return &Manager{
		cfg:           cfg,
		store:         store,
		renderer:      renderer,
		logger:        logger,
		notifier:      notifier,
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		wake: make(chan struct{}, 1),
	}
}

// Wake nudges the worker to look for pending jobs immediately.
func (m *Manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
