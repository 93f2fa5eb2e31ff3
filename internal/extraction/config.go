package extraction

import (
	"fmt"
	"time"

	"github.com/shoeboxd/shoebox/pkg/configure"
)

// Config holds tiered extraction parameters: the local-tier acceptance
// threshold and the vision provider settings, including the per-token rates
// used for cost accounting.
type Config struct {
	MinTextLength   int     `toml:"min_text_length"`
	MaxPages        int     `toml:"max_pages"`
	BaseURL         string  `toml:"base_url"`
	APIKey          string  `toml:"api_key"`
	Model           string  `toml:"model"`
	MaxTokens       int     `toml:"max_tokens"`
	RequestTimeout  string  `toml:"request_timeout"`
	InputRatePer1K  float64 `toml:"input_rate_per_1k"`
	OutputRatePer1K float64 `toml:"output_rate_per_1k"`
}

// Env names the environment variables that may override each field.
type Env struct {
	MinTextLength   string
	MaxPages        string
	BaseURL         string
	APIKey          string
	Model           string
	MaxTokens       string
	RequestTimeout  string
	InputRatePer1K  string
	OutputRatePer1K string
}

// RequestTimeoutDuration returns the parsed RequestTimeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// CostFor computes the provider charge for one call from reported token
// usage and the configured per-1K rates.
func (c *Config) CostFor(u Usage) float64 {
	input := float64(u.PromptTokens) / 1000 * c.InputRatePer1K
	output := float64(u.CompletionTokens) / 1000 * c.OutputRatePer1K
	return input + output
}

// Finalize resolves environment overrides and defaults, then validates.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		configure.EnvInt(env.MinTextLength, &c.MinTextLength)
		configure.EnvInt(env.MaxPages, &c.MaxPages)
		configure.Env(env.BaseURL, &c.BaseURL)
		configure.Env(env.APIKey, &c.APIKey)
		configure.Env(env.Model, &c.Model)
		configure.EnvInt(env.MaxTokens, &c.MaxTokens)
		configure.Env(env.RequestTimeout, &c.RequestTimeout)
		configure.EnvFloat(env.InputRatePer1K, &c.InputRatePer1K)
		configure.EnvFloat(env.OutputRatePer1K, &c.OutputRatePer1K)
	}

	configure.Default(&c.MinTextLength, 50)
	configure.Default(&c.MaxPages, 4)
	configure.Default(&c.Model, "gpt-4o")
	configure.Default(&c.MaxTokens, 2048)
	configure.Default(&c.RequestTimeout, "120s")
	configure.Default(&c.InputRatePer1K, 0.0025)
	configure.Default(&c.OutputRatePer1K, 0.01)

	return c.validate()
}

// Merge overwrites fields that overlay sets.
func (c *Config) Merge(overlay *Config) {
	configure.Merge(&c.MinTextLength, overlay.MinTextLength)
	configure.Merge(&c.MaxPages, overlay.MaxPages)
	configure.Merge(&c.BaseURL, overlay.BaseURL)
	configure.Merge(&c.APIKey, overlay.APIKey)
	configure.Merge(&c.Model, overlay.Model)
	configure.Merge(&c.MaxTokens, overlay.MaxTokens)
	configure.Merge(&c.RequestTimeout, overlay.RequestTimeout)
	configure.Merge(&c.InputRatePer1K, overlay.InputRatePer1K)
	configure.Merge(&c.OutputRatePer1K, overlay.OutputRatePer1K)
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key required")
	}
	if c.MinTextLength < 1 {
		return fmt.Errorf("min_text_length must be positive")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages must be positive")
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	if c.InputRatePer1K < 0 || c.OutputRatePer1K < 0 {
		return fmt.Errorf("token rates must not be negative")
	}
	return nil
}
