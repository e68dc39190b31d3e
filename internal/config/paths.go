package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"unwrapped/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// projectConfigName is looked up in the working directory when no file
// exists at the default location.
const projectConfigName = "unwrapped.toml"

// DefaultConfigPath returns the absolute default config location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// resolveConfigPath picks the file Load reads. An explicit path wins even if
// it does not exist yet; otherwise the default location, then the project
// file, and finally the default location as a not-yet-created target.
func resolveConfigPath(explicit string) (string, bool, error) {
	if explicit != "" {
		path, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(path)
		switch {
		case err == nil:
			return path, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return path, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	fallback, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	project, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{fallback, project} {
		if isRegularFile(candidate) {
			return candidate, true, nil
		}
	}
	return fallback, false, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// EnsureDirectories creates the data, output, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath is the render job database location.
func (c *Config) QueueDBPath() string { return filepath.Join(c.Paths.DataDir, "renders.db") }

// LockPath is the single-instance lock file for the service.
func (c *Config) LockPath() string { return filepath.Join(c.Paths.DataDir, "unwrapped.lock") }

// PollInterval is the progress polling cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Render.PollIntervalMS) * time.Millisecond
}

// RequestTimeout bounds one HTTP call to the render service.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Render.RequestTimeout) * time.Second
}

// JobTimeout bounds one rendering attempt.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.Render.JobTimeout) * time.Second
}

// ExpandPath resolves "~" and makes the path absolute and clean.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample config to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := fileutil.WriteAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the commented sample config text.
func Sample() string { return sampleConfig }
