package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ContentRecord identifies one unique file discovered during a scan.
// Records are immutable once written to a registry.
type ContentRecord struct {
	ContentHash  string    `json:"content_hash"`
	Source       string    `json:"source"`
	Path         string    `json:"path"`
	SizeBytes    int64     `json:"size_bytes"`
	ModifiedAt   time.Time `json:"modified_at"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Duplicate records a file whose content hash was already claimed by an
// earlier path in the same scan.
type Duplicate struct {
	ContentHash  string `json:"content_hash"`
	Path         string `json:"path"`
	OriginalPath string `json:"original_path"`
}

// Stats aggregates scan counters.
type Stats struct {
	Scanned    int   `json:"scanned"`
	New        int   `json:"new"`
	Duplicates int   `json:"duplicates"`
	Skipped    int   `json:"skipped"`
	Errors     int   `json:"errors"`
	TotalBytes int64 `json:"total_bytes"`
}

// Registry is the durable artifact of a single source scan and the sole
// input to consolidation.
type Registry struct {
	Source     string          `json:"source"`
	RootPath   string          `json:"root_path"`
	ScanDate   time.Time       `json:"scan_date"`
	Documents  []ContentRecord `json:"documents"`
	Duplicates []Duplicate     `json:"duplicates"`
	Stats      Stats           `json:"stats"`
}

// Save writes the registry to path as indented JSON. The write goes through
// a temp file in the target directory followed by a rename, so a crashed
// scan never leaves a partial registry behind.
func (r *Registry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close registry: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename registry: %w", err)
	}

	return nil
}

// LoadRegistry reads a registry JSON file from path.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var registry Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}

	return &registry, nil
}
