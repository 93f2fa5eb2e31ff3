package documents

import (
	"encoding/json"
	"fmt"

	"github.com/shoeboxd/shoebox/pkg/query"
	"github.com/shoeboxd/shoebox/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("content_hash", "ContentHash").
	Project("file_name", "FileName").
	Project("file_type", "FileType").
	Project("file_size", "FileSize").
	Project("primary_location", "PrimaryLocation").
	Project("source_locations", "SourceLocations").
	Project("processing_status", "ProcessingStatus").
	Project("category", "Category").
	Project("relevancy_score", "RelevancyScore").
	Project("life_impact_score", "LifeImpactScore").
	Project("detail_score", "DetailScore").
	Project("archival_score", "ArchivalScore").
	Project("document_date", "DocumentDate").
	Project("ocr_method", "OCRMethod").
	Project("processing_cost", "ProcessingCost").
	Project("first_seen", "FirstSeen").
	Project("last_seen", "LastSeen")

var defaultSort = query.SortField{
	Field:      "FirstSeen",
	Descending: true,
}

// docColumns lists the unqualified columns in scanDocument order, for
// RETURNING clauses on write statements.
var docColumns = projection.Bare()

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. ProcessingStatus, FileType, and OCRMethod use
// exact matching; FileName uses case-insensitive contains matching.
type Filters struct {
	ProcessingStatus *string `json:"processing_status,omitempty"`
	FileType         *string `json:"file_type,omitempty"`
	FileName         *string `json:"file_name,omitempty"`
	OCRMethod        *string `json:"ocr_method,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ProcessingStatus", f.ProcessingStatus).
		WhereEquals("FileType", f.FileType).
		WhereContains("FileName", f.FileName).
		WhereEquals("OCRMethod", f.OCRMethod)
}

func scanDocument(s repository.Scanner) (Document, error) {
	var (
		d         Document
		locations []byte
	)

	err := s.Scan(
		&d.ContentHash,
		&d.FileName,
		&d.FileType,
		&d.FileSize,
		&d.PrimaryLocation,
		&locations,
		&d.ProcessingStatus,
		&d.Category,
		&d.RelevancyScore,
		&d.LifeImpactScore,
		&d.DetailScore,
		&d.ArchivalScore,
		&d.DocumentDate,
		&d.OCRMethod,
		&d.ProcessingCost,
		&d.FirstSeen,
		&d.LastSeen,
	)
	if err != nil {
		return d, err
	}

	if len(locations) > 0 {
		if err := json.Unmarshal(locations, &d.SourceLocations); err != nil {
			return d, fmt.Errorf("decode source locations: %w", err)
		}
	}

	return d, nil
}
