package consolidator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/shoeboxd/shoebox/internal/documents"
)

// SourceSummary captures one input registry's contribution.
type SourceSummary struct {
	Source     string `json:"source"`
	Documents  int    `json:"documents"`
	Duplicates int    `json:"duplicates"`
}

// Outcome tallies the store upserts performed during consolidation.
type Outcome struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// DuplicateDoc is one document known in more than one location.
type DuplicateDoc struct {
	ContentHash     string               `json:"content_hash"`
	FileName        string               `json:"file_name"`
	PrimaryLocation string               `json:"primary_location"`
	Locations       []documents.Location `json:"locations"`
}

// DuplicateGroup collects the documents sharing a location count.
type DuplicateGroup struct {
	LocationCount int            `json:"location_count"`
	Documents     []DuplicateDoc `json:"documents"`
}

// Report is the durable record of one consolidation run.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Sources     []SourceSummary  `json:"sources"`
	Documents   int              `json:"documents"`
	Outcome     Outcome          `json:"outcome"`
	CrossSource []DuplicateGroup `json:"cross_source_duplicates"`
}

// groupDuplicates buckets documents with two or more known locations by
// location count, largest groups first. Counts come from the store's view
// after the upsert, so locations discovered in earlier runs are included.
func groupDuplicates(docs []documents.Document) []DuplicateGroup {
	byCount := make(map[int][]DuplicateDoc)

	for _, doc := range docs {
		count := len(doc.SourceLocations)
		if count < 2 {
			continue
		}

		byCount[count] = append(byCount[count], DuplicateDoc{
			ContentHash:     doc.ContentHash,
			FileName:        doc.FileName,
			PrimaryLocation: doc.PrimaryLocation,
			Locations:       doc.SourceLocations,
		})
	}

	counts := make([]int, 0, len(byCount))
	for count := range byCount {
		counts = append(counts, count)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	groups := make([]DuplicateGroup, 0, len(counts))
	for _, count := range counts {
		groups = append(groups, DuplicateGroup{
			LocationCount: count,
			Documents:     byCount[count],
		})
	}
	return groups
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Summarize prints a human-readable digest of the report.
func (r *Report) Summarize(w io.Writer) {
	fmt.Fprintf(w, "Consolidated %d unique documents from %d registries\n", r.Documents, len(r.Sources))

	for _, source := range r.Sources {
		fmt.Fprintf(w, "  %-20s %6d documents, %d intra-source duplicates\n",
			source.Source, source.Documents, source.Duplicates)
	}

	fmt.Fprintf(w, "Store: %d created, %d updated, %d failed\n",
		r.Outcome.Created, r.Outcome.Updated, r.Outcome.Failed)

	if len(r.CrossSource) == 0 {
		fmt.Fprintln(w, "No documents found in more than one location")
		return
	}

	for _, group := range r.CrossSource {
		fmt.Fprintf(w, "Found in %d locations: %d documents\n", group.LocationCount, len(group.Documents))
		for _, doc := range group.Documents {
			fmt.Fprintf(w, "  %s (%s)\n", doc.FileName, shortHash(doc.ContentHash))
			for _, loc := range doc.Locations {
				fmt.Fprintf(w, "    %s\n", FormatLocation(loc.Source, loc.Path))
			}
		}
	}
}

func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
