package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"unwrapped/internal/config"
)

// ConfigOption adjusts the config built by NewConfig.
type ConfigOption func(t testing.TB, cfg *config.Config)

// NewConfig returns a config rooted in a fresh temp directory with fast
// worker timings. Options run in order after the defaults are set.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		DataDir:   filepath.Join(root, "data"),
		OutputDir: filepath.Join(root, "renders"),
		LogDir:    filepath.Join(root, "logs"),
		APIBind:   "127.0.0.1:0",
	}
	cfg.Profiles.Dir = filepath.Join(root, "profiles")
	cfg.Render.PollIntervalMS = 100
	cfg.Workflow = config.Workflow{
		QueuePollInterval:  1,
		ErrorRetryInterval: 1,
		HeartbeatInterval:  1,
		HeartbeatTimeout:   5,
	}
	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// BaseDir is the temp root NewConfig placed every directory under.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WithServiceURL points the render client at a test server.
func WithServiceURL(url string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Render.ServiceURL = url }
}

// WithAPIToken guards the job endpoints with token.
func WithAPIToken(token string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Paths.APIToken = token }
}

// WithNtfyTopic enables notifications for topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) { cfg.Notifications.NtfyTopic = topic }
}

// WithRenderer sets the renderer command and its leading arguments.
func WithRenderer(command string, args ...string) ConfigOption {
	return func(_ testing.TB, cfg *config.Config) {
		cfg.Render.RendererCommand = command
		cfg.Render.RendererArgs = args
	}
}

// WithStubbedBinaries puts no-op executables named names first on PATH for
// the rest of the test. With no names the configured renderer is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		t.Helper()
		if len(names) == 0 {
			names = []string{cfg.Render.RendererCommand}
		}
		bin := filepath.Join(BaseDir(cfg), "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			WriteScript(t, filepath.Join(bin, name), "exit 0")
		}
		t.Setenv("PATH", strings.Join([]string{bin, os.Getenv("PATH")}, string(os.PathListSeparator)))
	}
}

// WriteScript writes an executable shell script with body at path.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}
