package consolidator_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shoeboxd/shoebox/internal/consolidator"
	"github.com/shoeboxd/shoebox/internal/documents"
	"github.com/shoeboxd/shoebox/internal/scanner"
	"github.com/shoeboxd/shoebox/pkg/pagination"
)

// fakeDocs implements documents.System in memory. Register unions locations
// the way the repository does; the other operations are unused here.
type fakeDocs struct {
	locations  map[string][]documents.Location
	registered []documents.RegisterCommand
	fail       map[string]bool
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		locations: make(map[string][]documents.Location),
		fail:      make(map[string]bool),
	}
}

func (f *fakeDocs) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters documents.Filters,
) (*pagination.PageResult[documents.Document], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDocs) Find(ctx context.Context, contentHash string) (*documents.Document, error) {
	return nil, documents.ErrNotFound
}

func (f *fakeDocs) Register(ctx context.Context, cmd documents.RegisterCommand) (*documents.Document, bool, error) {
	if f.fail[cmd.ContentHash] {
		return nil, false, errors.New("register rejected")
	}

	existing, known := f.locations[cmd.ContentHash]
	merged := documents.MergeLocations(existing, cmd.Locations)
	f.locations[cmd.ContentHash] = merged
	f.registered = append(f.registered, cmd)

	doc := &documents.Document{
		ContentHash:      cmd.ContentHash,
		FileName:         cmd.FileName,
		FileType:         cmd.FileType,
		FileSize:         cmd.FileSize,
		PrimaryLocation:  cmd.PrimaryLocation,
		SourceLocations:  merged,
		ProcessingStatus: documents.StatusPending,
	}
	return doc, !known, nil
}

func (f *fakeDocs) RecordExtraction(ctx context.Context, cmd documents.ExtractionCommand) error {
	return nil
}

func (f *fakeDocs) SetStatus(ctx context.Context, contentHash, status string) error {
	return nil
}

func (f *fakeDocs) Counts(ctx context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

func newConsolidator(docs documents.System) consolidator.System {
	return consolidator.New(docs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRegistry(source string, scanDate time.Time, records []scanner.ContentRecord, dups []scanner.Duplicate) *scanner.Registry {
	return &scanner.Registry{
		Source:     source,
		RootPath:   "/" + source,
		ScanDate:   scanDate,
		Documents:  records,
		Duplicates: dups,
	}
}

func record(hash, path string, size int64, discovered time.Time) scanner.ContentRecord {
	return scanner.ContentRecord{
		ContentHash:  hash,
		Path:         path,
		SizeBytes:    size,
		ModifiedAt:   discovered,
		DiscoveredAt: discovered,
	}
}

func TestMerge(t *testing.T) {
	scanDate := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	t.Run("folds documents across registries", func(t *testing.T) {
		laptop := testRegistry("laptop", scanDate, []scanner.ContentRecord{
			record("hash-1", "2024/receipt.pdf", 2048, scanDate),
		}, nil)
		nas := testRegistry("nas", scanDate, []scanner.ContentRecord{
			record("hash-1", "backup/receipt.pdf", 2048, scanDate),
			record("hash-2", "statement.pdf", 512, scanDate),
		}, nil)

		merged := consolidator.Merge([]*scanner.Registry{laptop, nas})

		if len(merged) != 2 {
			t.Fatalf("merged length = %d, want 2", len(merged))
		}

		first := merged[0]
		if first.ContentHash != "hash-1" {
			t.Errorf("merged[0].hash = %s, want hash-1", first.ContentHash)
		}
		if first.FileName != "receipt.pdf" {
			t.Errorf("merged[0].file_name = %s, want receipt.pdf", first.FileName)
		}
		if first.PrimaryLocation != "laptop:2024/receipt.pdf" {
			t.Errorf("merged[0].primary = %s, want laptop:2024/receipt.pdf", first.PrimaryLocation)
		}
		if len(first.Locations) != 2 {
			t.Errorf("merged[0] locations = %d, want 2", len(first.Locations))
		}

		if merged[1].ContentHash != "hash-2" || len(merged[1].Locations) != 1 {
			t.Errorf("merged[1] = %+v, want hash-2 with one location", merged[1])
		}
	})

	t.Run("intra-source duplicates contribute locations", func(t *testing.T) {
		registry := testRegistry("laptop", scanDate,
			[]scanner.ContentRecord{record("hash-1", "a.pdf", 100, scanDate.Add(-time.Hour))},
			[]scanner.Duplicate{{ContentHash: "hash-1", Path: "copies/a2.pdf", OriginalPath: "a.pdf"}},
		)

		merged := consolidator.Merge([]*scanner.Registry{registry})

		if len(merged) != 1 {
			t.Fatalf("merged length = %d, want 1", len(merged))
		}
		if len(merged[0].Locations) != 2 {
			t.Fatalf("locations = %d, want 2", len(merged[0].Locations))
		}

		dup := merged[0].Locations[1]
		if dup.Path != "copies/a2.pdf" {
			t.Errorf("duplicate location path = %s, want copies/a2.pdf", dup.Path)
		}
		if !dup.DiscoveredAt.Equal(scanDate) {
			t.Errorf("duplicate discovered_at = %v, want scan date %v", dup.DiscoveredAt, scanDate)
		}
	})

	t.Run("first occurrence claims identity", func(t *testing.T) {
		nas := testRegistry("nas", scanDate, []scanner.ContentRecord{
			record("hash-1", "scans/First.PNG", 300, scanDate),
		}, nil)
		laptop := testRegistry("laptop", scanDate, []scanner.ContentRecord{
			record("hash-1", "later.png", 300, scanDate),
		}, nil)

		merged := consolidator.Merge([]*scanner.Registry{nas, laptop})

		if merged[0].FileName != "First.PNG" {
			t.Errorf("file_name = %s, want First.PNG", merged[0].FileName)
		}
		if merged[0].FileType != ".png" {
			t.Errorf("file_type = %s, want .png", merged[0].FileType)
		}
		if merged[0].PrimaryLocation != "nas:scans/First.PNG" {
			t.Errorf("primary = %s, want nas:scans/First.PNG", merged[0].PrimaryLocation)
		}
	})

	t.Run("location sets are independent of registry order", func(t *testing.T) {
		a := testRegistry("laptop", scanDate, []scanner.ContentRecord{
			record("hash-1", "a.pdf", 100, scanDate),
		}, nil)
		b := testRegistry("nas", scanDate, []scanner.ContentRecord{
			record("hash-1", "b.pdf", 100, scanDate),
		}, nil)

		forward := consolidator.Merge([]*scanner.Registry{a, b})
		reversed := consolidator.Merge([]*scanner.Registry{b, a})

		set := func(m consolidator.Merged) map[string]bool {
			out := make(map[string]bool, len(m.Locations))
			for _, l := range m.Locations {
				out[l.Source+":"+l.Path] = true
			}
			return out
		}

		fwd, rev := set(forward[0]), set(reversed[0])
		if len(fwd) != len(rev) {
			t.Fatalf("location set sizes differ: %d vs %d", len(fwd), len(rev))
		}
		for key := range fwd {
			if !rev[key] {
				t.Errorf("reversed merge missing location %s", key)
			}
		}
	})

	t.Run("duplicate without an original record still merges", func(t *testing.T) {
		registry := testRegistry("laptop", scanDate, nil,
			[]scanner.Duplicate{{ContentHash: "hash-9", Path: "orphan.pdf", OriginalPath: "gone.pdf"}},
		)

		merged := consolidator.Merge([]*scanner.Registry{registry})

		if len(merged) != 1 {
			t.Fatalf("merged length = %d, want 1", len(merged))
		}
		if merged[0].FileSize != 0 {
			t.Errorf("file_size = %d, want 0 for duplicate-only hash", merged[0].FileSize)
		}
		if merged[0].FileName != "orphan.pdf" {
			t.Errorf("file_name = %s, want orphan.pdf", merged[0].FileName)
		}
	})
}

func TestConsolidateNoRegistries(t *testing.T) {
	sys := newConsolidator(newFakeDocs())

	_, err := sys.Consolidate(context.Background(), nil)
	if !errors.Is(err, consolidator.ErrNoRegistries) {
		t.Errorf("Consolidate(nil) error = %v, want ErrNoRegistries", err)
	}
}

func TestConsolidate(t *testing.T) {
	scanDate := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	laptop := testRegistry("laptop", scanDate, []scanner.ContentRecord{
		record("hash-1", "2024/receipt.pdf", 2048, scanDate),
		record("hash-2", "notes.txt", 64, scanDate),
	}, []scanner.Duplicate{
		{ContentHash: "hash-1", Path: "copies/receipt.pdf", OriginalPath: "2024/receipt.pdf"},
	})
	nas := testRegistry("nas", scanDate, []scanner.ContentRecord{
		record("hash-1", "backup/receipt.pdf", 2048, scanDate),
	}, nil)

	docs := newFakeDocs()
	sys := newConsolidator(docs)

	report, err := sys.Consolidate(context.Background(), []*scanner.Registry{laptop, nas})
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}

	if report.Documents != 2 {
		t.Errorf("documents: got %d, want 2", report.Documents)
	}
	if len(report.Sources) != 2 {
		t.Fatalf("sources: got %d, want 2", len(report.Sources))
	}
	if report.Sources[0].Source != "laptop" || report.Sources[0].Documents != 2 || report.Sources[0].Duplicates != 1 {
		t.Errorf("sources[0] = %+v, want laptop with 2 documents and 1 duplicate", report.Sources[0])
	}

	if report.Outcome.Created != 2 || report.Outcome.Updated != 0 || report.Outcome.Failed != 0 {
		t.Errorf("outcome = %+v, want 2 created", report.Outcome)
	}

	if len(docs.registered) != 2 {
		t.Fatalf("registered: got %d commands, want 2", len(docs.registered))
	}
	cmd := docs.registered[0]
	if cmd.ContentHash != "hash-1" || len(cmd.Locations) != 3 {
		t.Errorf("registered[0] = hash %s with %d locations, want hash-1 with 3", cmd.ContentHash, len(cmd.Locations))
	}

	if len(report.CrossSource) != 1 {
		t.Fatalf("cross source groups: got %d, want 1", len(report.CrossSource))
	}
	group := report.CrossSource[0]
	if group.LocationCount != 3 {
		t.Errorf("group location count: got %d, want 3", group.LocationCount)
	}
	if len(group.Documents) != 1 || group.Documents[0].ContentHash != "hash-1" {
		t.Errorf("group documents = %+v, want only hash-1", group.Documents)
	}
}

func TestConsolidateCountsUpdatedAndFailed(t *testing.T) {
	scanDate := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	registry := testRegistry("laptop", scanDate, []scanner.ContentRecord{
		record("hash-known", "a.pdf", 100, scanDate),
		record("hash-bad", "b.pdf", 100, scanDate),
		record("hash-new", "c.pdf", 100, scanDate),
	}, nil)

	docs := newFakeDocs()
	docs.locations["hash-known"] = []documents.Location{
		{Source: "phone", Path: "old/a.pdf", DiscoveredAt: scanDate.Add(-48 * time.Hour)},
	}
	docs.fail["hash-bad"] = true

	report, err := newConsolidator(docs).Consolidate(context.Background(), []*scanner.Registry{registry})
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}

	if report.Outcome.Created != 1 {
		t.Errorf("created: got %d, want 1", report.Outcome.Created)
	}
	if report.Outcome.Updated != 1 {
		t.Errorf("updated: got %d, want 1", report.Outcome.Updated)
	}
	if report.Outcome.Failed != 1 {
		t.Errorf("failed: got %d, want 1", report.Outcome.Failed)
	}

	// The known hash now spans phone and laptop, so it lands in a group;
	// the failed hash must not appear at all.
	if len(report.CrossSource) != 1 || report.CrossSource[0].LocationCount != 2 {
		t.Fatalf("cross source = %+v, want one group of 2", report.CrossSource)
	}
	for _, doc := range report.CrossSource[0].Documents {
		if doc.ContentHash == "hash-bad" {
			t.Error("failed hash should not appear in duplicate groups")
		}
	}
}

func TestConsolidateGroupsLargestFirst(t *testing.T) {
	scanDate := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	registry := testRegistry("laptop", scanDate, []scanner.ContentRecord{
		record("hash-three", "three.pdf", 100, scanDate),
		record("hash-two", "two.pdf", 100, scanDate),
		record("hash-one", "one.pdf", 100, scanDate),
	}, nil)

	docs := newFakeDocs()
	docs.locations["hash-three"] = []documents.Location{
		{Source: "phone", Path: "p/three.pdf", DiscoveredAt: scanDate},
		{Source: "nas", Path: "n/three.pdf", DiscoveredAt: scanDate},
	}
	docs.locations["hash-two"] = []documents.Location{
		{Source: "phone", Path: "p/two.pdf", DiscoveredAt: scanDate},
	}

	report, err := newConsolidator(docs).Consolidate(context.Background(), []*scanner.Registry{registry})
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}

	if len(report.CrossSource) != 2 {
		t.Fatalf("cross source groups: got %d, want 2", len(report.CrossSource))
	}
	if report.CrossSource[0].LocationCount != 3 {
		t.Errorf("first group count: got %d, want 3", report.CrossSource[0].LocationCount)
	}
	if report.CrossSource[1].LocationCount != 2 {
		t.Errorf("second group count: got %d, want 2", report.CrossSource[1].LocationCount)
	}
}

func TestReportSave(t *testing.T) {
	report := &consolidator.Report{
		GeneratedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Sources:     []consolidator.SourceSummary{{Source: "laptop", Documents: 3, Duplicates: 1}},
		Documents:   3,
		Outcome:     consolidator.Outcome{Created: 2, Updated: 1},
	}

	path := filepath.Join(t.TempDir(), "consolidation.report.json")
	if err := report.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var loaded consolidator.Report
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("parse report: %v", err)
	}

	if loaded.Documents != 3 {
		t.Errorf("documents: got %d, want 3", loaded.Documents)
	}
	if loaded.Outcome.Created != 2 || loaded.Outcome.Updated != 1 {
		t.Errorf("outcome = %+v, want 2 created and 1 updated", loaded.Outcome)
	}
	if len(loaded.Sources) != 1 || loaded.Sources[0].Source != "laptop" {
		t.Errorf("sources = %+v, want laptop", loaded.Sources)
	}
}

func TestReportSummarize(t *testing.T) {
	report := &consolidator.Report{
		Sources:   []consolidator.SourceSummary{{Source: "laptop", Documents: 2, Duplicates: 1}},
		Documents: 2,
		Outcome:   consolidator.Outcome{Created: 2},
		CrossSource: []consolidator.DuplicateGroup{
			{
				LocationCount: 2,
				Documents: []consolidator.DuplicateDoc{
					{
						ContentHash:     "abcdef1234567890",
						FileName:        "receipt.pdf",
						PrimaryLocation: "laptop:2024/receipt.pdf",
						Locations: []documents.Location{
							{Source: "laptop", Path: "2024/receipt.pdf"},
							{Source: "nas", Path: "backup/receipt.pdf"},
						},
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	report.Summarize(&buf)
	out := buf.String()

	for _, want := range []string{
		"Consolidated 2 unique documents from 1 registries",
		"laptop",
		"Store: 2 created, 0 updated, 0 failed",
		"Found in 2 locations: 1 documents",
		"receipt.pdf (abcdef123456)",
		"nas:backup/receipt.pdf",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in:\n%s", want, out)
		}
	}
}

func TestReportSummarizeNoDuplicates(t *testing.T) {
	report := &consolidator.Report{Documents: 1, Outcome: consolidator.Outcome{Created: 1}}

	var buf bytes.Buffer
	report.Summarize(&buf)

	if !strings.Contains(buf.String(), "No documents found in more than one location") {
		t.Errorf("summary missing no-duplicates line:\n%s", buf.String())
	}
}

func TestFormatLocation(t *testing.T) {
	got := consolidator.FormatLocation("laptop", "2024/receipt.pdf")
	if got != "laptop:2024/receipt.pdf" {
		t.Errorf("FormatLocation() = %s, want laptop:2024/receipt.pdf", got)
	}
}
