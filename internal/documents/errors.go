package documents

import "errors"

// Domain errors for master document operations.
var (
	ErrNotFound      = errors.New("document not found")
	ErrDuplicate     = errors.New("document already exists")
	ErrInvalidHash   = errors.New("content hash must not be empty")
	ErrNoLocations   = errors.New("at least one source location required")
	ErrInvalidStatus = errors.New("invalid processing status")
)
