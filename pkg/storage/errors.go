package storage

import "errors"

var (
	// ErrNotFound reports an operation against a blob that does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey rejects an empty storage key.
	ErrEmptyKey = errors.New("empty storage key")
	// ErrInvalidKey rejects a storage key with a path traversal segment.
	ErrInvalidKey = errors.New("storage key traverses parent directory")
)
