package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProfiles(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProfiles() error {
	switch c.Profiles.Source {
	case ProfileSourceDir:
		if strings.TrimSpace(c.Profiles.Dir) == "" {
			return errors.New("profiles.dir must be set when profiles.source is \"dir\"")
		}
	case ProfileSourcePostgres:
		if c.Profiles.DatabaseURL == "" {
			return errors.New("profiles.database_url must be set when profiles.source is \"postgres\" (or set DATABASE_URL)")
		}
	default:
		return fmt.Errorf("profiles.source must be %q or %q, got %q", ProfileSourceDir, ProfileSourcePostgres, c.Profiles.Source)
	}
	return nil
}

func (c *Config) validateRender() error {
	parsed, err := url.Parse(c.Render.ServiceURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("render.service_url must be an absolute URL, got %q", c.Render.ServiceURL)
	}
	if c.Render.PollIntervalMS < minPollIntervalMS {
		return fmt.Errorf("render.poll_interval_ms must be at least %d", minPollIntervalMS)
	}
	if err := ensurePositiveMap(map[string]int{
		"render.request_timeout": c.Render.RequestTimeout,
		"render.job_timeout":     c.Render.JobTimeout,
	}); err != nil {
		return err
	}
	if c.Render.PublicBaseURL != "" {
		if parsed, err := url.Parse(c.Render.PublicBaseURL); err != nil || parsed.Scheme == "" {
			return fmt.Errorf("render.public_base_url must be an absolute URL, got %q", c.Render.PublicBaseURL)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RateLimitRPS < 0 {
		return errors.New("server.rate_limit_rps must be >= 0")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return errors.New("server.rate_limit_burst must be >= 1 when rate limiting is enabled")
	}
	if _, err := c.Server.ProxyPrefixes(); err != nil {
		return fmt.Errorf("server.trusted_proxies: %w", err)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
