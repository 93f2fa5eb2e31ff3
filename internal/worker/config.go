package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shoeboxd/shoebox/pkg/configure"
)

// Config holds worker loop parameters.
type Config struct {
	PollInterval     string `toml:"poll_interval"`
	IdleTimeout      string `toml:"idle_timeout"`
	OperationTimeout string `toml:"operation_timeout"`
	ScratchDir       string `toml:"scratch_dir"`
}

// Env names the environment variables that may override each field.
type Env struct {
	PollInterval     string
	IdleTimeout      string
	OperationTimeout string
	ScratchDir       string
}

// PollIntervalDuration returns the parsed PollInterval.
func (c *Config) PollIntervalDuration() time.Duration { return duration(c.PollInterval) }

// IdleTimeoutDuration returns the parsed IdleTimeout.
func (c *Config) IdleTimeoutDuration() time.Duration { return duration(c.IdleTimeout) }

// OperationTimeoutDuration returns the parsed OperationTimeout.
func (c *Config) OperationTimeoutDuration() time.Duration { return duration(c.OperationTimeout) }

// Finalize resolves environment overrides and defaults, then validates.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		configure.Env(env.PollInterval, &c.PollInterval)
		configure.Env(env.IdleTimeout, &c.IdleTimeout)
		configure.Env(env.OperationTimeout, &c.OperationTimeout)
		configure.Env(env.ScratchDir, &c.ScratchDir)
	}

	configure.Default(&c.PollInterval, "30s")
	configure.Default(&c.IdleTimeout, "300s")
	configure.Default(&c.OperationTimeout, "120s")
	configure.Default(&c.ScratchDir, filepath.Join(os.TempDir(), "shoebox"))

	return c.validate()
}

// Merge overwrites fields that overlay sets.
func (c *Config) Merge(overlay *Config) {
	configure.Merge(&c.PollInterval, overlay.PollInterval)
	configure.Merge(&c.IdleTimeout, overlay.IdleTimeout)
	configure.Merge(&c.OperationTimeout, overlay.OperationTimeout)
	configure.Merge(&c.ScratchDir, overlay.ScratchDir)
}

func (c *Config) validate() error {
	durations := []struct{ field, value string }{
		{"poll_interval", c.PollInterval},
		{"idle_timeout", c.IdleTimeout},
		{"operation_timeout", c.OperationTimeout},
	}
	for _, d := range durations {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.field, err)
		}
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
