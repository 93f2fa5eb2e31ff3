// Package pagination provides the page request and result types shared by
// listing operations.
package pagination

import (
	"fmt"

	"github.com/shoeboxd/shoebox/pkg/configure"
)

// Config bounds page sizes for listing operations.
type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// ConfigEnv names the environment variables that may override each field.
type ConfigEnv struct {
	DefaultPageSize string
	MaxPageSize     string
}

// Finalize resolves environment overrides and defaults, then validates.
func (c *Config) Finalize(env *ConfigEnv) error {
	if env != nil {
		configure.EnvInt(env.DefaultPageSize, &c.DefaultPageSize)
		configure.EnvInt(env.MaxPageSize, &c.MaxPageSize)
	}

	configure.Default(&c.DefaultPageSize, 20)
	configure.Default(&c.MaxPageSize, 100)

	if c.DefaultPageSize < 1 {
		return fmt.Errorf("default_page_size must be positive")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("max_page_size must be positive")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default_page_size cannot exceed max_page_size")
	}
	return nil
}

// Merge overwrites fields from overlay where the overlay value is non-zero.
func (c *Config) Merge(overlay *Config) {
	configure.Merge(&c.DefaultPageSize, overlay.DefaultPageSize)
	configure.Merge(&c.MaxPageSize, overlay.MaxPageSize)
}
