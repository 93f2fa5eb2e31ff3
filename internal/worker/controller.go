package worker

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shoeboxd/shoebox/internal/instances"
)

// Controller decides what happens when a worker crosses its idle threshold.
// The runner invokes it exactly once and stops claiming afterwards, keeping
// the polling loop and lifecycle policy separate.
type Controller interface {
	OnIdle(ctx context.Context, workerID uuid.UUID)
}

type teardown struct {
	registry instances.System
	shutdown func()
	logger   *slog.Logger
}

// NewTeardownController returns the production idle policy: mark the worker
// destroyed in the instance registry, then request process shutdown.
func NewTeardownController(registry instances.System, shutdown func(), logger *slog.Logger) Controller {
	return &teardown{
		registry: registry,
		shutdown: shutdown,
		logger:   logger.With("system", "worker"),
	}
}

func (t *teardown) OnIdle(ctx context.Context, workerID uuid.UUID) {
	t.logger.Info("idle threshold reached, tearing down", "worker", workerID)

	if err := t.registry.SetStatus(ctx, workerID, instances.StatusDestroyed); err != nil {
		t.logger.Error("mark destroyed failed", "worker", workerID, "error", err)
	}

	if t.shutdown != nil {
		t.shutdown()
	}
}
