package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeProfiles(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeServer()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if port, ok := lookupEnv("PORT"); ok {
		c.Paths.APIBind = ":" + strings.TrimPrefix(port, ":")
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if token, ok := lookupEnv("UNWRAPPED_API_TOKEN"); ok {
		c.Paths.APIToken = token
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeProfiles() error {
	if url, ok := lookupEnv("DATABASE_URL"); ok {
		c.Profiles.DatabaseURL = url
		if strings.TrimSpace(c.Profiles.Source) == "" {
			c.Profiles.Source = ProfileSourcePostgres
		}
	}
	c.Profiles.Source = strings.ToLower(strings.TrimSpace(c.Profiles.Source))
	if c.Profiles.Source == "" {
		c.Profiles.Source = ProfileSourceDir
	}
	c.Profiles.DatabaseURL = strings.TrimSpace(c.Profiles.DatabaseURL)
	if strings.TrimSpace(c.Profiles.Dir) == "" {
		c.Profiles.Dir = defaultProfilesDir
	}
	var err error
	if c.Profiles.Dir, err = expandPath(c.Profiles.Dir); err != nil {
		return fmt.Errorf("profiles.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.ServiceURL = strings.TrimRight(strings.TrimSpace(c.Render.ServiceURL), "/")
	if c.Render.ServiceURL == "" {
		c.Render.ServiceURL = defaultServiceURL
	}
	c.Render.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Render.PublicBaseURL), "/")
	c.Render.RendererCommand = strings.TrimSpace(c.Render.RendererCommand)
	if c.Render.RendererCommand == "" {
		c.Render.RendererCommand = defaultRendererCommand
		if len(c.Render.RendererArgs) == 0 {
			c.Render.RendererArgs = append([]string(nil), defaultRendererArgs...)
		}
	}
	c.Render.EntryPoint = strings.TrimSpace(c.Render.EntryPoint)
	if c.Render.EntryPoint == "" {
		c.Render.EntryPoint = defaultEntryPoint
	}
	c.Render.CompositionID = strings.TrimSpace(c.Render.CompositionID)
	if c.Render.CompositionID == "" {
		c.Render.CompositionID = defaultCompositionID
	}
}

func (c *Config) normalizeServer() {
	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	c.Server.CORSOrigins = origins
}

func (c *Config) normalizeNotifications() {
	if topic, ok := lookupEnv("NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = topic
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

// lookupEnv reports a non-empty environment value.
func lookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
