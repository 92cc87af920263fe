package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"alert-digest/internal/config"
)

const (
	maxConns        = 2
	connMaxLifetime = 5 * time.Minute
)

// NewPool configures a PostgreSQL connection pool for directory reads.
func NewPool(ctx context.Context, cfg config.DirectoryConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("directory.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MaxConnLifetime = connMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}
