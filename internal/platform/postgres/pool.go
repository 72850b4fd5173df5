// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the PostgreSQL connection pool that backs the
// profile (usuario) and teacher (docente) repositories.
//
// # Architecture
//
// Infrastructure layer. Repositories receive the *pgxpool.Pool through their
// constructors; nothing here knows about domain types.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the pool. Zero values fall back to [DefaultPoolOptions].
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration

	// StatementTimeout is applied to every new connection.
	StatementTimeout time.Duration
}

// DefaultPoolOptions returns settings sized for a single API instance.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:          15,
		MinConns:          2,
		MaxConnLifetime:   60 * time.Minute,
		MaxConnIdleTime:   10 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    5 * time.Second,
		StatementTimeout:  10 * time.Second,
	}
}

const pingTimeout = 2 * time.Second

// NewPool creates a pool, applies options and verifies connectivity.
func NewPool(ctx context.Context, dsn string, options PoolOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	options = options.withDefaults()

	poolConfig.MaxConns = options.MaxConns
	poolConfig.MinConns = options.MinConns
	poolConfig.MaxConnLifetime = options.MaxConnLifetime
	poolConfig.MaxConnIdleTime = options.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = options.HealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = options.ConnectTimeout

	statementTimeout := fmt.Sprintf("SET statement_timeout = %d", options.StatementTimeout.Milliseconds())
	poolConfig.AfterConnect = func(ctx context.Context, connection *pgx.Conn) error {
		_, err := connection.Exec(ctx, statementTimeout)
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, options.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(options.MaxConns)),
	)

	return pool, nil
}

// Ping verifies that the pool can reach the database.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}

func (options PoolOptions) withDefaults() PoolOptions {
	defaults := DefaultPoolOptions()

	if options.MaxConns <= 0 {
		options.MaxConns = defaults.MaxConns
	}
	if options.MinConns < 0 || options.MinConns > options.MaxConns {
		options.MinConns = defaults.MinConns
	}
	if options.MaxConnLifetime <= 0 {
		options.MaxConnLifetime = defaults.MaxConnLifetime
	}
	if options.MaxConnIdleTime <= 0 {
		options.MaxConnIdleTime = defaults.MaxConnIdleTime
	}
	if options.HealthCheckPeriod <= 0 {
		options.HealthCheckPeriod = defaults.HealthCheckPeriod
	}
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = defaults.ConnectTimeout
	}
	if options.StatementTimeout <= 0 {
		options.StatementTimeout = defaults.StatementTimeout
	}

	return options
}
