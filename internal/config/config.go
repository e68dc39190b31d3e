package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Profile source kinds.
const (
	ProfileSourceDir      = "dir"
	ProfileSourcePostgres = "postgres"
)

// Profiles selects where statistics records are read from.
type Profiles struct {
	Source      string `toml:"source"`
	Dir         string `toml:"dir"`
	DatabaseURL string `toml:"database_url"`
}

// Render contains client and renderer settings.
type Render struct {
	ServiceURL      string   `toml:"service_url"`
	PollIntervalMS  int      `toml:"poll_interval_ms"`
	RequestTimeout  int      `toml:"request_timeout"`
	JobTimeout      int      `toml:"job_timeout"`
	RendererCommand string   `toml:"renderer_command"`
	RendererArgs    []string `toml:"renderer_args"`
	EntryPoint      string   `toml:"entry_point"`
	CompositionID   string   `toml:"composition_id"`
	PublicBaseURL   string   `toml:"public_base_url"`
}

// Server contains HTTP surface settings.
type Server struct {
	CORSOrigins    []string `toml:"cors_origins"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
	// TrustedProxies lists addresses or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers name the client. Empty means the peer address is
	// always the client.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// ProxyPrefixes parses TrustedProxies. A bare address becomes a single-host
// prefix.
func (s Server) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		entry := strings.TrimSpace(raw)
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Workflow contains render worker timing.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
	RenderCompleted bool   `toml:"render_completed"`
	RenderFailed    bool   `toml:"render_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values.
//
// Configuration sections by subsystem:
//   - Paths: data, output, and log directories plus the API bind address
//   - Profiles: where statistics records come from
//   - Render: render service URL, polling cadence, renderer command
//   - Server: CORS and rate limiting for the HTTP surface
//   - Workflow: worker polling and heartbeat timing
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Profiles      Profiles      `toml:"profiles"`
	Render        Render        `toml:"render"`
	Server        Server        `toml:"server"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// Load resolves the config file, overlays it on Default, applies environment
// overrides, and validates the result. It returns the resolved path and
// whether a file existed there. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
