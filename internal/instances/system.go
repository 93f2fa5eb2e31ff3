package instances

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for worker instance tracking.
type System interface {
	// Register records a new running worker and returns its identity.
	Register(ctx context.Context) (*Instance, error)

	// RecordJob bumps the worker's processed count and activity timestamp.
	RecordJob(ctx context.Context, id uuid.UUID) error

	// SetStatus transitions the worker's status. Destroyed additionally
	// stamps destroyed_at.
	SetStatus(ctx context.Context, id uuid.UUID, status string) error

	// Active returns workers currently in running or idle status.
	Active(ctx context.Context) ([]Instance, error)
}
