// Package store provides an optional PostgreSQL archive of observed market
// prices. The archive is a side channel for later analysis; the trading loop
// never reads from it and keeps running when writes fail.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTicksTable = `
	CREATE TABLE IF NOT EXISTS price_ticks (
		id          BIGSERIAL PRIMARY KEY,
		symbol      TEXT NOT NULL,
		price       DOUBLE PRECISION NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// TickStore archives price observations to PostgreSQL
type TickStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTickStore connects to the database and ensures the tick table exists
func NewTickStore(ctx context.Context, dsn string, logger *slog.Logger) (*TickStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createTicksTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tick table: %w", err)
	}

	logger.Info("[STORE] Connected to tick archive")

	return &TickStore{
		pool:   pool,
		logger: logger,
	}, nil
}

// RecordTick inserts a single price observation
func (s *TickStore) RecordTick(ctx context.Context, symbol string, price float64, ts time.Time) error {
	query := `
		INSERT INTO price_ticks (symbol, price, observed_at)
		VALUES ($1, $2, $3)
	`

	if _, err := s.pool.Exec(ctx, query, symbol, price, ts); err != nil {
		return fmt.Errorf("failed to record tick: %w", err)
	}

	s.logger.Debug("[STORE] Tick archived", "symbol", symbol, "price", price)
	return nil
}

// Close closes the database connection pool
func (s *TickStore) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("[STORE] Connection closed")
	}
}
