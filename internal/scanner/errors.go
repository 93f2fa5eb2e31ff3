package scanner

import "errors"

// Domain errors for scan operations.
var (
	ErrInvalidRoot = errors.New("scan root is not a directory")
	ErrEmptySource = errors.New("source name must not be empty")
)
