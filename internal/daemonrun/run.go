package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"unwrapped/internal/config"
	"unwrapped/internal/daemon"
	"unwrapped/internal/deps"
	"unwrapped/internal/fileutil"
	"unwrapped/internal/logging"
	"unwrapped/internal/logs"
	"unwrapped/internal/preflight"
	"unwrapped/internal/queue"
	"unwrapped/internal/render"
	"unwrapped/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the render service and blocks until the context ends or
// SIGINT/SIGTERM arrives. Each run logs to its own timestamped file and
// points unwrapped.log at it.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := newRunLogger(cfg, opts)
	if err != nil {
		return err
	}
	logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "unwrapped.pid")
	if err := fileutil.WriteAtomic(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := buildDaemon(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api_bind and that no other instance holds the lock"),
			logging.String(logging.FieldImpact, "render requests are not served"),
		)
		return err
	}
	<-ctx.Done()
	logger.Info("unwrapped daemon shutting down", logging.Event("daemon_shutdown"))
	return nil
}

func newRunLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	runLog := filepath.Join(cfg.Paths.LogDir,
		"unwrapped-"+time.Now().UTC().Format("20060102T150405.000Z")+".log")
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", runLog},
		Development: opts.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := pointCurrentLog(cfg.Paths.LogDir, runLog); err != nil {
		logging.WarnWithContext(logger, "unable to update current log pointer", "log_pointer_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "unwrapped logs shows the previous run"),
		)
	}
	return logger.With(logging.String("run_id", uuid.NewString())), nil
}

func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open job store", "store_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions"),
		)
		return nil, err
	}
	renderer, err := render.NewCommandRenderer(cfg, render.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("configure renderer: %w", err)
	}
	d, err := daemon.New(cfg, store, logger, workflow.NewManager(cfg, store, renderer, logger, nil))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

// pointCurrentLog makes unwrapped.log a relative symlink to target, or a
// hard link where symlinks are unavailable.
func pointCurrentLog(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := logs.CurrentPath(logDir)
	if err := os.Remove(current); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(filepath.Base(target), current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := preflight.CheckSystemDeps(cfg)
	attrs := []logging.Attr{
		logging.Event("dependency_snapshot"),
		logging.String("profile_source", cfg.Profiles.Source),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
	}
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(status.Name+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, status := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required binary missing", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.String(logging.FieldErrorHint, status.Detail),
			logging.String(logging.FieldImpact, "renders will fail"),
		)
	}
}
