// Package infrastructure assembles the shared systems the shoebox tools
// start from: lifecycle coordination, logging, database access, and blob
// storage.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shoeboxd/shoebox/internal/config"
	"github.com/shoeboxd/shoebox/pkg/database"
	"github.com/shoeboxd/shoebox/pkg/lifecycle"
	"github.com/shoeboxd/shoebox/pkg/storage"
)

// Infrastructure carries the core systems a tool runs on. Storage is nil
// for tools built with NewStore.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
}

// New builds the full infrastructure, blob storage included. Systems are
// initialized but not started; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	infra, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(&cfg.Storage, infra.Logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	infra.Storage = store

	return infra, nil
}

// NewStore builds database-only infrastructure for tools that work
// against the master document store without touching blob storage.
func NewStore(cfg *config.Config) (*Infrastructure, error) {
	logger := newLogger(cfg)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
	}, nil
}

// Start registers every initialized system with the lifecycle
// coordinator. The database is verified reachable before any startup
// hook runs, so a bad DSN fails here rather than mid-run.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("start database: %w", err)
	}

	if i.Storage == nil {
		return nil
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("start storage: %w", err)
	}
	return nil
}

// newLogger writes text records locally and JSON records in deployed
// environments, where a collector consumes stderr.
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Env() == "local" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
