package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"unwrapped/internal/config"
	"unwrapped/internal/services"
)

// Source looks up statistics records by username. Implementations return
// (nil, nil) when no record exists.
type Source interface {
	Lookup(ctx context.Context, username string) (*Stats, error)
	Close() error
}

// NewSource builds the source selected by profiles.source.
func NewSource(ctx context.Context, cfg *config.Config) (Source, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "profile", "open source", "config is required", nil)
	}
	switch cfg.Profiles.Source {
	case config.ProfileSourcePostgres:
		return OpenPostgres(ctx, cfg.Profiles.DatabaseURL)
	default:
		return NewDirSource(cfg.Profiles.Dir), nil
	}
}

// DirSource reads <lowercased-username>.json documents from a directory.
type DirSource struct {
	dir string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Lookup implements Source.
func (d *DirSource) Lookup(ctx context.Context, username string) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := LowercaseUsername(username)
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return nil, nil
	}
	path := filepath.Join(d.dir, key+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "profile", "read stats", path, err)
	}
	stats, err := Decode(data)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "profile", "decode stats", path, err)
	}
	return stats, nil
}

// Close implements Source.
func (d *DirSource) Close() error { return nil }

// Path returns the file a username resolves to.
func (d *DirSource) Path(username string) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s.json", LowercaseUsername(username)))
}
