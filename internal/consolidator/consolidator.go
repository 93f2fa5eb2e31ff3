// Package consolidator merges per-source scan registries into the master
// document store. The merge key is the content hash: the first occurrence
// across the inputs claims the identity, every further occurrence only adds
// a location.
package consolidator

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/shoeboxd/shoebox/internal/documents"
	"github.com/shoeboxd/shoebox/internal/scanner"
)

// System defines the public contract for registry consolidation.
type System interface {
	// Consolidate merges the given registries and upserts every unique
	// document into the store. Per-document failures are counted in the
	// report and do not stop the run.
	Consolidate(ctx context.Context, registries []*scanner.Registry) (*Report, error)
}

type consolidator struct {
	docs   documents.System
	logger *slog.Logger
}

// New creates a consolidator writing through the given document system.
func New(docs documents.System, logger *slog.Logger) System {
	return &consolidator{
		docs:   docs,
		logger: logger.With("system", "consolidator"),
	}
}

// Merged is the in-memory consolidation of one content hash across all
// input registries.
type Merged struct {
	ContentHash     string
	FileName        string
	FileType        string
	FileSize        int64
	PrimaryLocation string
	Locations       []documents.Location
}

// Merge folds registries in input order into one record per content hash.
// Both a registry's unique documents and its intra-source duplicates
// contribute locations; location sets are unions deduplicated by
// (source, path), so the final sets do not depend on input order.
func Merge(registries []*scanner.Registry) []Merged {
	order := make([]string, 0)
	byHash := make(map[string]*Merged)

	add := func(hash string, loc documents.Location, name string, size int64) {
		if m, ok := byHash[hash]; ok {
			m.Locations = documents.MergeLocations(m.Locations, []documents.Location{loc})
			return
		}

		byHash[hash] = &Merged{
			ContentHash:     hash,
			FileName:        name,
			FileType:        strings.ToLower(path.Ext(name)),
			FileSize:        size,
			PrimaryLocation: FormatLocation(loc.Source, loc.Path),
			Locations:       []documents.Location{loc},
		}
		order = append(order, hash)
	}

	for _, registry := range registries {
		for _, record := range registry.Documents {
			add(record.ContentHash, documents.Location{
				Source:       registry.Source,
				Path:         record.Path,
				DiscoveredAt: record.DiscoveredAt,
			}, path.Base(record.Path), record.SizeBytes)
		}

		for _, duplicate := range registry.Duplicates {
			add(duplicate.ContentHash, documents.Location{
				Source:       registry.Source,
				Path:         duplicate.Path,
				DiscoveredAt: registry.ScanDate,
			}, path.Base(duplicate.Path), 0)
		}
	}

	merged := make([]Merged, 0, len(order))
	for _, hash := range order {
		merged = append(merged, *byHash[hash])
	}
	return merged
}

func (c *consolidator) Consolidate(ctx context.Context, registries []*scanner.Registry) (*Report, error) {
	if len(registries) == 0 {
		return nil, ErrNoRegistries
	}

	merged := Merge(registries)

	c.logger.Info("consolidation started",
		"registries", len(registries),
		"documents", len(merged),
	)

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Documents:   len(merged),
	}

	for _, registry := range registries {
		report.Sources = append(report.Sources, SourceSummary{
			Source:     registry.Source,
			Documents:  len(registry.Documents),
			Duplicates: len(registry.Duplicates),
		})
	}

	resolved := make([]documents.Document, 0, len(merged))

	for _, m := range merged {
		doc, created, err := c.docs.Register(ctx, documents.RegisterCommand{
			ContentHash:     m.ContentHash,
			FileName:        m.FileName,
			FileType:        m.FileType,
			FileSize:        m.FileSize,
			PrimaryLocation: m.PrimaryLocation,
			Locations:       m.Locations,
		})
		if err != nil {
			c.logger.Error("register failed", "hash", m.ContentHash, "error", err)
			report.Outcome.Failed++
			continue
		}

		if created {
			report.Outcome.Created++
		} else {
			report.Outcome.Updated++
		}
		resolved = append(resolved, *doc)
	}

	report.CrossSource = groupDuplicates(resolved)

	c.logger.Info("consolidation complete",
		"created", report.Outcome.Created,
		"updated", report.Outcome.Updated,
		"failed", report.Outcome.Failed,
		"duplicate_groups", len(report.CrossSource),
	)

	return report, nil
}

// FormatLocation renders a (source, path) pair as a single location string.
func FormatLocation(source, p string) string {
	return fmt.Sprintf("%s:%s", source, p)
}
