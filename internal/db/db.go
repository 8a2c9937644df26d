package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type Config struct {
	Addr         string
	MaxOpenConns int32
	MaxIdleTime  string
}

// New sets up a new pgx connection pool
func New(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.Addr)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		config.MaxConns = cfg.MaxOpenConns
	}

	duration, err := time.ParseDuration(cfg.MaxIdleTime)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_TIME %q: %w", cfg.MaxIdleTime, err)
	}
	config.MaxConnIdleTime = duration

	// Bounds pool creation and the initial Ping.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbpool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}

	return dbpool, nil
}

// EnsureSchema creates the tables and indexes the postgres stores use. Every
// statement is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
