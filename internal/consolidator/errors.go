package consolidator

import "errors"

var (
	// ErrNoRegistries indicates a consolidation request with no inputs.
	ErrNoRegistries = errors.New("no registries to consolidate")
)
