// Package documents implements the master document registry: one row per
// unique content hash, accumulating every location the content has been
// observed at along with the extraction outcome for that content.
package documents

import (
	"time"
)

// Processing status values for a master document.
const (
	StatusPending    = "pending"
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Location records one place a document's content was observed.
// Locations are identified by (source, path); DiscoveredAt is fixed by the
// scan that first reported the pair.
type Location struct {
	Source       string    `json:"source"`
	Path         string    `json:"path"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Document represents one unique piece of content and its extraction state.
// ContentHash is the identity; the location set only ever grows.
type Document struct {
	ContentHash      string     `json:"content_hash"`
	FileName         string     `json:"file_name"`
	FileType         string     `json:"file_type"`
	FileSize         int64      `json:"file_size"`
	PrimaryLocation  string     `json:"primary_location"`
	SourceLocations  []Location `json:"source_locations"`
	ProcessingStatus string     `json:"processing_status"`
	Category         *string    `json:"category,omitempty"`
	RelevancyScore   *int       `json:"relevancy_score,omitempty"`
	LifeImpactScore  *int       `json:"life_impact_score,omitempty"`
	DetailScore      *int       `json:"detail_score,omitempty"`
	ArchivalScore    *int       `json:"archival_score,omitempty"`
	DocumentDate     *time.Time `json:"document_date,omitempty"`
	OCRMethod        *string    `json:"ocr_method,omitempty"`
	ProcessingCost   float64    `json:"processing_cost"`
	FirstSeen        time.Time  `json:"first_seen"`
	LastSeen         time.Time  `json:"last_seen"`
}

// RegisterCommand carries one consolidated observation of content for upsert.
// Locations must contain at least one entry; PrimaryLocation refers to the
// occurrence that first claimed the hash during consolidation.
type RegisterCommand struct {
	ContentHash     string
	FileName        string
	FileType        string
	FileSize        int64
	PrimaryLocation string
	Locations       []Location
}

// ExtractionCommand records the outcome of processing a document's content.
// Status must be StatusCompleted or StatusError.
type ExtractionCommand struct {
	ContentHash     string
	Status          string
	Category        *string
	RelevancyScore  *int
	LifeImpactScore *int
	DetailScore     *int
	ArchivalScore   *int
	DocumentDate    *time.Time
	OCRMethod       *string
	Cost            float64
}

// MergeLocations unions existing and incoming location sets, deduplicating
// by (source, path). Existing entries keep their order and DiscoveredAt;
// new entries append in incoming order. The result is independent of which
// consolidation round contributed which entry first.
func MergeLocations(existing, incoming []Location) []Location {
	type key struct {
		source string
		path   string
	}

	seen := make(map[key]struct{}, len(existing)+len(incoming))
	merged := make([]Location, 0, len(existing)+len(incoming))

	for _, loc := range existing {
		k := key{loc.Source, loc.Path}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, loc)
	}

	for _, loc := range incoming {
		k := key{loc.Source, loc.Path}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, loc)
	}

	return merged
}
