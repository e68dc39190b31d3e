package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"unwrapped/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PORT", "DATABASE_URL", "UNWRAPPED_API_TOKEN", "NTFY_TOPIC"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "unwrapped")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Profiles.Source != config.ProfileSourceDir {
		t.Fatalf("expected dir profile source, got %q", cfg.Profiles.Source)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8080" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.QueueDBPath() != filepath.Join(wantData, "renders.db") {
		t.Fatalf("unexpected queue path: %q", cfg.QueueDBPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "unwrapped.toml")

	type payload struct {
		Render struct {
			ServiceURL     string `toml:"service_url"`
			PollIntervalMS int    `toml:"poll_interval_ms"`
		} `toml:"render"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Render.ServiceURL = "https://render.example.com/"
	custom.Render.PollIntervalMS = 250
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Render.ServiceURL != "https://render.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Render.ServiceURL)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
	if cfg.Render.RendererCommand != "npx" {
		t.Fatalf("expected default renderer command, got %q", cfg.Render.RendererCommand)
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("UNWRAPPED_API_TOKEN", "secret")
	t.Setenv("NTFY_TOPIC", "https://ntfy.example.com/renders")
	configPath := filepath.Join(t.TempDir(), "unwrapped.toml")
	if err := os.WriteFile(configPath, []byte("[profiles]\nsource = \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIBind != ":9090" {
		t.Errorf("expected bind from PORT, got %q", cfg.Paths.APIBind)
	}
	if cfg.Profiles.Source != config.ProfileSourcePostgres {
		t.Errorf("expected postgres source when DATABASE_URL set, got %q", cfg.Profiles.Source)
	}
	if cfg.Profiles.DatabaseURL != "postgres://u:p@localhost/db" {
		t.Errorf("unexpected database url %q", cfg.Profiles.DatabaseURL)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Errorf("expected token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example.com/renders" {
		t.Errorf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_topic_here") {
		t.Fatalf("sample config missing ntfy placeholder: %s", contents)
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "unwrapped") {
		t.Fatalf("expected data dir to contain unwrapped, got %q", cfg.Paths.DataDir)
	}
	if cfg.Render.PollIntervalMS != 1000 {
		t.Fatalf("expected sample poll interval 1000, got %d", cfg.Render.PollIntervalMS)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"poll interval too small", func(c *config.Config) { c.Render.PollIntervalMS = 10 }},
		{"relative service url", func(c *config.Config) { c.Render.ServiceURL = "render.local" }},
		{"zero request timeout", func(c *config.Config) { c.Render.RequestTimeout = 0 }},
		{"heartbeat interval", func(c *config.Config) { c.Workflow.HeartbeatInterval = 0 }},
		{"timeout <= interval", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }},
		{"unknown profile source", func(c *config.Config) { c.Profiles.Source = "s3" }},
		{"postgres without url", func(c *config.Config) { c.Profiles.Source = config.ProfileSourcePostgres }},
		{"negative rate", func(c *config.Config) { c.Server.RateLimitRPS = -1 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"bad trusted proxy", func(c *config.Config) { c.Server.TrustedProxies = []string{"proxy.local"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadReportsParsePosition(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[render]\npoll_interval_ms = = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), configPath+":2:") {
		t.Fatalf("expected file and line in error, got %v", err)
	}
}

func TestLoadFallsBackToProjectFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	workdir := t.TempDir()
	t.Chdir(workdir)
	if err := os.WriteFile("unwrapped.toml", []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "unwrapped.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level from project file, got %q", cfg.Logging.Level)
	}
}

func TestProxyPrefixes(t *testing.T) {
	server := config.Server{TrustedProxies: []string{"127.0.0.1", " 10.1.2.3/8 ", "::1"}}
	prefixes, err := server.ProxyPrefixes()
	if err != nil {
		t.Fatalf("ProxyPrefixes: %v", err)
	}
	var got []string
	for _, p := range prefixes {
		got = append(got, p.String())
	}
	want := "127.0.0.1/32 10.0.0.0/8 ::1/128"
	if strings.Join(got, " ") != want {
		t.Fatalf("prefixes = %v, want %s", got, want)
	}
}
