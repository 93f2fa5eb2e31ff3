package instances

import "errors"

// Domain errors for worker instance operations.
var (
	ErrNotFound      = errors.New("worker instance not found")
	ErrDuplicate     = errors.New("worker instance already registered")
	ErrInvalidStatus = errors.New("invalid instance status")
)
