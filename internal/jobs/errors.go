package jobs

import "errors"

// Domain errors for queue operations.
var (
	ErrNotFound  = errors.New("job not found")
	ErrDuplicate = errors.New("job already exists")
	// ErrNoJob indicates no queued job was available to claim. This is the
	// expected idle outcome, not a failure.
	ErrNoJob = errors.New("no queued job available")
	// ErrNotClaimed indicates a completion or failure update matched no row,
	// meaning the job is not held by this worker in processing status.
	ErrNotClaimed = errors.New("job not claimed by this worker")
	ErrEmptyPath  = errors.New("job file path must not be empty")
)
