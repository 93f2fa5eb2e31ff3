// Package database opens and supervises the PostgreSQL pool shared by the
// ingestion tools.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/shoeboxd/shoebox/pkg/lifecycle"
)

// System owns the process-wide connection pool.
type System interface {
	// Connection returns the shared pool.
	Connection() *sql.DB
	// Ping verifies connectivity within the configured connection timeout.
	Ping(ctx context.Context) error
	// Start verifies connectivity and registers the pool's teardown hook.
	// An unreachable database fails startup.
	Start(lc *lifecycle.Coordinator) error
}

type system struct {
	pool    *sql.DB
	logger  *slog.Logger
	timeout time.Duration
}

// New configures a pool for the given connection settings. The pool is
// lazy; no connection is attempted until Ping or Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	pool, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &system{
		pool:    pool,
		logger:  logger.With("system", "database"),
		timeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (s *system) Connection() *sql.DB {
	return s.pool
}

func (s *system) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.pool.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (s *system) Start(lc *lifecycle.Coordinator) error {
	if err := s.Ping(lc.Context()); err != nil {
		return err
	}
	s.logger.Info("database connection established")

	lc.OnTeardown(func() {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("database close failed", "error", err)
			return
		}
		s.logger.Info("database connection closed")
	})

	return nil
}
