package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shoeboxd/shoebox/pkg/pagination"
)

// System defines the public contract for queue operations.
type System interface {
	// Enqueue adds a queued job for the given storage key.
	Enqueue(ctx context.Context, filePath string) (*Job, error)

	// Claim atomically transitions the oldest queued job to processing under
	// the given worker. Returns ErrNoJob when the queue is empty.
	Claim(ctx context.Context, workerID uuid.UUID) (*Job, error)

	// Complete finishes a claimed job with its extraction result. Returns
	// ErrNotClaimed unless the job is processing under workerID.
	Complete(ctx context.Context, jobID, workerID uuid.UUID, result json.RawMessage) error

	// Fail finishes a claimed job with an error message. Returns
	// ErrNotClaimed unless the job is processing under workerID.
	Fail(ctx context.Context, jobID, workerID uuid.UUID, message string) error

	Find(ctx context.Context, id uuid.UUID) (*Job, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Job], error)

	Counts(ctx context.Context) (map[string]int, error)

	// RequeueStale returns long-running processing jobs to the queue and
	// reports how many were moved.
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
