package scanner

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/shoeboxd/shoebox/pkg/configure"
	"github.com/shoeboxd/shoebox/pkg/formatting"
)

// Config holds filesystem scan parameters.
type Config struct {
	Extensions  []string `toml:"extensions"`
	Excludes    []string `toml:"excludes"`
	HashWorkers int      `toml:"hash_workers"`
	MaxFileSize string   `toml:"max_file_size"`
}

// Env names the environment variables that may override each field.
type Env struct {
	Extensions  string
	Excludes    string
	HashWorkers string
	MaxFileSize string
}

// MaxFileSizeBytes returns MaxFileSize as a byte count.
func (c *Config) MaxFileSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxFileSize)
	return n
}

// Finalize resolves environment overrides and defaults, then validates.
// Extensions are normalized to lowercase dotted form.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		configure.EnvList(env.Extensions, &c.Extensions)
		configure.EnvList(env.Excludes, &c.Excludes)
		configure.EnvInt(env.HashWorkers, &c.HashWorkers)
		configure.Env(env.MaxFileSize, &c.MaxFileSize)
	}

	if len(c.Extensions) == 0 {
		c.Extensions = []string{
			".jpg", ".jpeg", ".png", ".gif", ".webp",
			".pdf", ".txt", ".md",
		}
	}
	if len(c.Excludes) == 0 {
		c.Excludes = []string{"node_modules", "vendor"}
	}
	configure.Default(&c.HashWorkers, min(runtime.NumCPU(), 8))
	configure.Default(&c.MaxFileSize, "100MB")

	return c.validate()
}

// Merge overwrites fields that overlay sets. A present-but-empty
// extension or exclude list is an explicit clear.
func (c *Config) Merge(overlay *Config) {
	configure.MergeList(&c.Extensions, overlay.Extensions)
	configure.MergeList(&c.Excludes, overlay.Excludes)
	configure.Merge(&c.HashWorkers, overlay.HashWorkers)
	configure.Merge(&c.MaxFileSize, overlay.MaxFileSize)
}

func (c *Config) validate() error {
	if c.HashWorkers < 1 {
		return fmt.Errorf("hash_workers must be positive")
	}
	if _, err := formatting.ParseBytes(c.MaxFileSize); err != nil {
		return fmt.Errorf("invalid max_file_size: %w", err)
	}

	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
	return nil
}
