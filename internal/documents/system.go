package documents

import (
	"context"

	"github.com/shoeboxd/shoebox/pkg/pagination"
)

// System defines the public contract for master document operations.
type System interface {
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, contentHash string) (*Document, error)

	// Register upserts one consolidated observation of content. It reports
	// whether a new registry row was created; an existing row only grows
	// its location set.
	Register(ctx context.Context, cmd RegisterCommand) (*Document, bool, error)

	// RecordExtraction persists scores, cost, and final status for a hash.
	RecordExtraction(ctx context.Context, cmd ExtractionCommand) error

	SetStatus(ctx context.Context, contentHash, status string) error

	// Counts returns document totals grouped by processing status.
	Counts(ctx context.Context) (map[string]int, error)
}
