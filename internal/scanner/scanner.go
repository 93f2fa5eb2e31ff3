// Package scanner discovers documents on a filesystem and records them in a
// content-addressed registry, one registry per source.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shoeboxd/shoebox/pkg/formatting"
)

// System defines the public contract for source scanning.
type System interface {
	// Scan walks root, hashes every eligible file, and returns the resulting
	// registry. Per-file failures are counted and logged; only an invalid
	// root or a cancelled context fail the scan itself.
	Scan(ctx context.Context, root, source string) (*Registry, error)
}

type scanner struct {
	cfg    *Config
	logger *slog.Logger
}

// New creates a scanner system with the given configuration.
func New(cfg *Config, logger *slog.Logger) System {
	return &scanner{
		cfg:    cfg,
		logger: logger.With("system", "scanner"),
	}
}

type candidate struct {
	path    string
	rel     string
	size    int64
	modTime time.Time
}

type outcome struct {
	digest string
	err    error
}

func (s *scanner) Scan(ctx context.Context, root, source string) (*Registry, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	registry := &Registry{
		Source:     source,
		RootPath:   root,
		ScanDate:   time.Now().UTC(),
		Documents:  make([]ContentRecord, 0),
		Duplicates: make([]Duplicate, 0),
	}

	s.logger.Info("scan started", "source", source, "root", root)

	candidates := s.collect(root, registry)

	outcomes, err := s.hashAll(ctx, candidates)
	if err != nil {
		return nil, err
	}

	s.fold(registry, candidates, outcomes)

	s.logger.Info("scan complete",
		"source", source,
		"scanned", registry.Stats.Scanned,
		"new", registry.Stats.New,
		"duplicates", registry.Stats.Duplicates,
		"skipped", registry.Stats.Skipped,
		"errors", registry.Stats.Errors,
		"size", formatting.FormatBytes(registry.Stats.TotalBytes, 1),
	)

	return registry, nil
}

// collect walks the tree and gathers eligible files. Hidden entries and
// excluded directory names are pruned before descent.
func (s *scanner) collect(root string, registry *Registry) []candidate {
	maxSize := s.cfg.MaxFileSizeBytes()

	eligible := make(map[string]struct{}, len(s.cfg.Extensions))
	for _, ext := range s.cfg.Extensions {
		eligible[ext] = struct{}{}
	}

	excluded := make(map[string]struct{}, len(s.cfg.Excludes))
	for _, name := range s.cfg.Excludes {
		excluded[name] = struct{}{}
	}

	candidates := make([]candidate, 0)

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("walk error", "path", path, "error", err)
			registry.Stats.Errors++
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			if _, ok := excluded[name]; ok {
				return fs.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if _, ok := eligible[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warn("stat failed", "path", path, "error", err)
			registry.Stats.Errors++
			return nil
		}

		if maxSize > 0 && info.Size() > maxSize {
			s.logger.Warn("file exceeds size limit",
				"path", path,
				"size", formatting.FormatBytes(info.Size(), 1),
			)
			registry.Stats.Skipped++
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		candidates = append(candidates, candidate{
			path:    path,
			rel:     filepath.ToSlash(rel),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})

	return candidates
}

// hashAll digests candidates under a bounded worker group. Outcomes are
// stored by index so the fold runs in walk order regardless of which worker
// finished first. Per-file errors stay in the outcome; only context
// cancellation aborts the group.
func (s *scanner) hashAll(ctx context.Context, candidates []candidate) ([]outcome, error) {
	outcomes := make([]outcome, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.HashWorkers)

	for i, c := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			digest, err := HashFile(c.path)
			outcomes[i] = outcome{digest: digest, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

// fold builds the registry from hash outcomes in walk order, so the first
// path claiming a hash is deterministic across runs.
func (s *scanner) fold(registry *Registry, candidates []candidate, outcomes []outcome) {
	seen := make(map[string]string, len(candidates))

	for i, c := range candidates {
		o := outcomes[i]

		registry.Stats.Scanned++

		if o.err != nil {
			s.logger.Warn("hash failed", "path", c.path, "error", o.err)
			registry.Stats.Errors++
			continue
		}

		registry.Stats.TotalBytes += c.size

		if original, ok := seen[o.digest]; ok {
			registry.Stats.Duplicates++
			registry.Duplicates = append(registry.Duplicates, Duplicate{
				ContentHash:  o.digest,
				Path:         c.rel,
				OriginalPath: original,
			})
		} else {
			seen[o.digest] = c.rel
			registry.Stats.New++
			registry.Documents = append(registry.Documents, ContentRecord{
				ContentHash:  o.digest,
				Source:       registry.Source,
				Path:         c.rel,
				SizeBytes:    c.size,
				ModifiedAt:   c.modTime.UTC(),
				DiscoveredAt: registry.ScanDate,
			})
		}

		if registry.Stats.Scanned%500 == 0 {
			s.logger.Info("scan progress",
				"scanned", registry.Stats.Scanned,
				"new", registry.Stats.New,
				"duplicates", registry.Stats.Duplicates,
				"errors", registry.Stats.Errors,
			)
		}
	}
}
