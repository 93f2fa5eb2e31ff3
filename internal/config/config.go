// Package config resolves the layered TOML configuration the shoebox
// tools share. Each tool finalizes only the sections it needs so that,
// for example, a filesystem scan never demands database credentials.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/shoeboxd/shoebox/internal/extraction"
	"github.com/shoeboxd/shoebox/internal/scanner"
	"github.com/shoeboxd/shoebox/internal/worker"
	"github.com/shoeboxd/shoebox/pkg/configure"
	"github.com/shoeboxd/shoebox/pkg/database"
	"github.com/shoeboxd/shoebox/pkg/pagination"
	"github.com/shoeboxd/shoebox/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvShoeboxEnv             = "SHOEBOX_ENV"
	EnvShoeboxShutdownTimeout = "SHOEBOX_SHUTDOWN_TIMEOUT"
	EnvShoeboxVersion         = "SHOEBOX_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "SHOEBOX_DB_HOST",
	Port:            "SHOEBOX_DB_PORT",
	Name:            "SHOEBOX_DB_NAME",
	User:            "SHOEBOX_DB_USER",
	Password:        "SHOEBOX_DB_PASSWORD",
	SSLMode:         "SHOEBOX_DB_SSL_MODE",
	MaxOpenConns:    "SHOEBOX_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "SHOEBOX_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "SHOEBOX_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "SHOEBOX_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "SHOEBOX_STORAGE_CONTAINER_NAME",
	ConnectionString: "SHOEBOX_STORAGE_CONNECTION_STRING",
	MaxListSize:      "SHOEBOX_STORAGE_MAX_LIST_SIZE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "SHOEBOX_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "SHOEBOX_PAGINATION_MAX_PAGE_SIZE",
}

var scanEnv = &scanner.Env{
	Extensions:  "SHOEBOX_SCAN_EXTENSIONS",
	Excludes:    "SHOEBOX_SCAN_EXCLUDES",
	HashWorkers: "SHOEBOX_SCAN_HASH_WORKERS",
	MaxFileSize: "SHOEBOX_SCAN_MAX_FILE_SIZE",
}

var workerEnv = &worker.Env{
	PollInterval:     "SHOEBOX_WORKER_POLL_INTERVAL",
	IdleTimeout:      "SHOEBOX_WORKER_IDLE_TIMEOUT",
	OperationTimeout: "SHOEBOX_WORKER_OPERATION_TIMEOUT",
	ScratchDir:       "SHOEBOX_WORKER_SCRATCH_DIR",
}

var extractionEnv = &extraction.Env{
	MinTextLength:   "SHOEBOX_EXTRACTION_MIN_TEXT_LENGTH",
	MaxPages:        "SHOEBOX_EXTRACTION_MAX_PAGES",
	BaseURL:         "SHOEBOX_EXTRACTION_BASE_URL",
	APIKey:          "SHOEBOX_EXTRACTION_API_KEY",
	Model:           "SHOEBOX_EXTRACTION_MODEL",
	MaxTokens:       "SHOEBOX_EXTRACTION_MAX_TOKENS",
	RequestTimeout:  "SHOEBOX_EXTRACTION_REQUEST_TIMEOUT",
	InputRatePer1K:  "SHOEBOX_EXTRACTION_INPUT_RATE_PER_1K",
	OutputRatePer1K: "SHOEBOX_EXTRACTION_OUTPUT_RATE_PER_1K",
}

// Config is the root configuration for the shoebox tools.
type Config struct {
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	Pagination      pagination.Config `toml:"pagination"`
	Scan            scanner.Config    `toml:"scan"`
	Worker          worker.Config     `toml:"worker"`
	Extraction      extraction.Config `toml:"extraction"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// section pairs a config section with its finalizer so each loader can
// name exactly the sections its tool touches.
type section struct {
	name     string
	finalize func(*Config) error
}

var (
	databaseSection   = section{"database", func(c *Config) error { return c.Database.Finalize(databaseEnv) }}
	paginationSection = section{"pagination", func(c *Config) error { return c.Pagination.Finalize(paginationEnv) }}
	storageSection    = section{"storage", func(c *Config) error { return c.Storage.Finalize(storageEnv) }}
	scanSection       = section{"scan", func(c *Config) error { return c.Scan.Finalize(scanEnv) }}
	workerSection     = section{"worker", func(c *Config) error { return c.Worker.Finalize(workerEnv) }}
	extractionSection = section{"extraction", func(c *Config) error { return c.Extraction.Finalize(extractionEnv) }}
)

// Load finalizes every section. The worker is the only tool that needs
// the full configuration.
func Load() (*Config, error) {
	return loadSections(
		databaseSection,
		paginationSection,
		storageSection,
		scanSection,
		workerSection,
		extractionSection,
	)
}

// LoadScan finalizes only the scan section.
func LoadScan() (*Config, error) {
	return loadSections(scanSection)
}

// LoadStore finalizes the database and pagination sections for tools
// that read and write the master document store.
func LoadStore() (*Config, error) {
	return loadSections(databaseSection, paginationSection)
}

// LoadQueue finalizes the database, pagination, and storage sections
// for queue operations.
func LoadQueue() (*Config, error) {
	return loadSections(databaseSection, paginationSection, storageSection)
}

// Env returns the SHOEBOX_ENV value, defaulting to "local".
func (c *Config) Env() string {
	env := "local"
	configure.Env(EnvShoeboxEnv, &env)
	return env
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Merge overwrites non-zero fields from overlay across all sections.
func (c *Config) Merge(overlay *Config) {
	configure.Merge(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	configure.Merge(&c.Version, overlay.Version)

	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Pagination.Merge(&overlay.Pagination)
	c.Scan.Merge(&overlay.Scan)
	c.Worker.Merge(&overlay.Worker)
	c.Extraction.Merge(&overlay.Extraction)
}

func loadSections(sections ...section) (*Config, error) {
	cfg, err := loadMerged()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalizeRoot(); err != nil {
		return nil, err
	}
	for _, s := range sections {
		if err := s.finalize(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	return cfg, nil
}

// loadMerged reads the base config and applies the environment overlay
// when SHOEBOX_ENV names one. Both files are optional; defaults and
// environment variables can provide all configuration.
func loadMerged() (*Config, error) {
	cfg := &Config{}
	if err := loadFile(BaseConfigFile, cfg); err != nil {
		return nil, err
	}

	if env := os.Getenv(EnvShoeboxEnv); env != "" {
		overlay := &Config{}
		if err := loadFile(fmt.Sprintf(OverlayConfigPattern, env), overlay); err != nil {
			return nil, err
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) finalizeRoot() error {
	configure.Env(EnvShoeboxShutdownTimeout, &c.ShutdownTimeout)
	configure.Env(EnvShoeboxVersion, &c.Version)

	configure.Default(&c.ShutdownTimeout, "30s")
	configure.Default(&c.Version, "0.1.0")

	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}
