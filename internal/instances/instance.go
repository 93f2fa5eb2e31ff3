// Package instances tracks worker processes in the shared store: when they
// started, how much work they have done, and how they went away.
package instances

import (
	"time"

	"github.com/google/uuid"
)

// Instance status values. Destroyed means the worker tore itself down after
// its idle timeout; stopped means it exited on an operator signal.
const (
	StatusRunning   = "running"
	StatusIdle      = "idle"
	StatusStopped   = "stopped"
	StatusDestroyed = "destroyed"
)

// Instance is one registered worker process.
type Instance struct {
	ID            uuid.UUID  `json:"id"`
	Hostname      string     `json:"hostname"`
	Status        string     `json:"status"`
	JobsProcessed int        `json:"jobs_processed"`
	StartedAt     time.Time  `json:"started_at"`
	LastActiveAt  time.Time  `json:"last_active_at"`
	DestroyedAt   *time.Time `json:"destroyed_at,omitempty"`
}
