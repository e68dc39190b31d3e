package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"unwrapped/internal/services"
)

const lookupStatsSQL = `SELECT stats FROM profile_stats WHERE lowercased_username = $1`

// PostgresSource reads statistics documents from the profile_stats table:
//
//	CREATE TABLE profile_stats (
//	    lowercased_username TEXT PRIMARY KEY,
//	    stats               JSONB NOT NULL
//	);
type PostgresSource struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool and verifies connectivity.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "profile", "open postgres", "profiles.database_url is empty", nil)
	}
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "profile", "parse database url", "", err)
	}
	poolCfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "profile", "open postgres", "", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, services.Wrap(services.ErrTransient, "profile", "ping postgres", "", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// Lookup implements Source.
func (p *PostgresSource) Lookup(ctx context.Context, username string) (*Stats, error) {
	key := LowercaseUsername(username)
	if key == "" {
		return nil, nil
	}
	var raw []byte
	err := p.pool.QueryRow(ctx, lookupStatsSQL, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "profile", "query stats", key, err)
	}
	stats, err := Decode(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "profile", "decode stats", key, err)
	}
	return stats, nil
}

// Close implements Source.
func (p *PostgresSource) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}
