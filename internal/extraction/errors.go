package extraction

import "errors"

// Domain errors for extraction operations.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrRenderFailed    = errors.New("page render failed")
	ErrVisionRequest   = errors.New("vision request failed")
)
