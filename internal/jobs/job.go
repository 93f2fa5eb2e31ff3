// Package jobs implements the durable ingestion job queue. Each job names
// one stored artifact to run through extraction; workers claim jobs with a
// single conditional update so an attempt is never handed out twice.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job status values.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Job is one unit of ingestion work.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	FilePath    string          `json:"file_path"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	WorkerID    *uuid.UUID      `json:"worker_id,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error,omitempty"`
}
