// Package database owns the Postgres connection pool and embedded schema
// migrations. It deliberately exposes a raw *pgxpool.Pool rather than a
// generated ORM client: repositories in internal/persistence write their
// own SQL against it.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/netlab-io/controller/internal/config"
)

// Client wraps the pool plus the config it was built from, so callers can
// read pool-sizing decisions back out for health reporting.
type Client struct {
	Pool *pgxpool.Pool
	cfg  config.DatabaseConfig
}

// NewClient opens a pgx connection pool per cfg, runs embedded migrations,
// and verifies connectivity with a ping.
func NewClient(ctx context.Context, cfg config.DatabaseConfig) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("database: parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database: open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	if err := runMigrations(cfg.DSN); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: migrate: %w", err)
	}

	slog.Info("database: connected", "max_conns", cfg.MaxConns, "min_conns", cfg.MinConns)
	return &Client{Pool: pool, cfg: cfg}, nil
}

// Close releases all pooled connections.
func (c *Client) Close() {
	c.Pool.Close()
}

// Health pings the pool. The HTTP /health handler does not call it.
func (c *Client) Health(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}
