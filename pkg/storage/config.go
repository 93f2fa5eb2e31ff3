package storage

import (
	"fmt"

	"github.com/shoeboxd/shoebox/pkg/configure"
)

// MaxListCap is the Azure Blob service ceiling for a single list page.
const MaxListCap = 5000

// Config holds the blob storage connection parameters.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	MaxListSize      int    `toml:"max_list_size"`
}

// Env names the environment variables that may override each field.
type Env struct {
	ContainerName    string
	ConnectionString string
	MaxListSize      string
}

// Finalize resolves environment overrides and defaults, then validates
// the result.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		configure.Env(env.ContainerName, &c.ContainerName)
		configure.Env(env.ConnectionString, &c.ConnectionString)
		configure.EnvInt(env.MaxListSize, &c.MaxListSize)
	}

	configure.Default(&c.ContainerName, "documents")
	configure.Default(&c.MaxListSize, 500)
	c.MaxListSize = min(c.MaxListSize, MaxListCap)

	return c.validate()
}

// Merge overwrites fields that overlay sets.
func (c *Config) Merge(overlay *Config) {
	configure.Merge(&c.ContainerName, overlay.ContainerName)
	configure.Merge(&c.ConnectionString, overlay.ConnectionString)
	configure.Merge(&c.MaxListSize, overlay.MaxListSize)
}

func (c *Config) validate() error {
	if c.ConnectionString == "" {
		return fmt.Errorf("connection_string required")
	}
	if c.MaxListSize < 1 {
		return fmt.Errorf("max_list_size must be positive, got %d", c.MaxListSize)
	}
	return nil
}
