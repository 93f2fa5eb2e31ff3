package extraction_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shoeboxd/shoebox/internal/extraction"
)

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := &extraction.Config{APIKey: "test-key"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.MinTextLength != 50 {
		t.Errorf("MinTextLength = %d, expected 50", cfg.MinTextLength)
	}
	if cfg.MaxPages != 4 {
		t.Errorf("MaxPages = %d, expected 4", cfg.MaxPages)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Model = %s, expected gpt-4o", cfg.Model)
	}
	if cfg.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, expected 2048", cfg.MaxTokens)
	}
	if cfg.RequestTimeout != "120s" {
		t.Errorf("RequestTimeout = %s, expected 120s", cfg.RequestTimeout)
	}
	if cfg.InputRatePer1K != 0.0025 {
		t.Errorf("InputRatePer1K = %f, expected 0.0025", cfg.InputRatePer1K)
	}
	if cfg.OutputRatePer1K != 0.01 {
		t.Errorf("OutputRatePer1K = %f, expected 0.01", cfg.OutputRatePer1K)
	}
	if cfg.BaseURL != "" {
		t.Errorf("BaseURL = %s, expected empty", cfg.BaseURL)
	}
}

func TestConfigFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("SHOEBOX_TEST_EXTRACTION_MIN_TEXT", "100")
	t.Setenv("SHOEBOX_TEST_EXTRACTION_API_KEY", "env-key")
	t.Setenv("SHOEBOX_TEST_EXTRACTION_MODEL", "gpt-4o-mini")
	t.Setenv("SHOEBOX_TEST_EXTRACTION_INPUT_RATE", "0.005")

	cfg := &extraction.Config{}
	env := &extraction.Env{
		MinTextLength:  "SHOEBOX_TEST_EXTRACTION_MIN_TEXT",
		APIKey:         "SHOEBOX_TEST_EXTRACTION_API_KEY",
		Model:          "SHOEBOX_TEST_EXTRACTION_MODEL",
		InputRatePer1K: "SHOEBOX_TEST_EXTRACTION_INPUT_RATE",
	}

	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.MinTextLength != 100 {
		t.Errorf("MinTextLength = %d, expected 100", cfg.MinTextLength)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %s, expected env-key", cfg.APIKey)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %s, expected gpt-4o-mini", cfg.Model)
	}
	if cfg.InputRatePer1K != 0.005 {
		t.Errorf("InputRatePer1K = %f, expected 0.005", cfg.InputRatePer1K)
	}
}

func TestConfigFinalizeIgnoresUnparseableEnv(t *testing.T) {
	t.Setenv("SHOEBOX_TEST_EXTRACTION_MIN_TEXT", "not-a-number")

	cfg := &extraction.Config{APIKey: "test-key"}
	env := &extraction.Env{
		MinTextLength: "SHOEBOX_TEST_EXTRACTION_MIN_TEXT",
	}

	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.MinTextLength != 50 {
		t.Errorf("MinTextLength = %d, expected default 50", cfg.MinTextLength)
	}
}

func TestConfigFinalizeRejectsNegativeEnv(t *testing.T) {
	t.Setenv("SHOEBOX_TEST_EXTRACTION_MAX_PAGES", "-3")

	cfg := &extraction.Config{APIKey: "test-key"}
	env := &extraction.Env{
		MaxPages: "SHOEBOX_TEST_EXTRACTION_MAX_PAGES",
	}

	err := cfg.Finalize(env)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "max_pages must be positive") {
		t.Errorf("error = %q, expected max_pages rejection", err.Error())
	}
}

func TestConfigFinalizeValidation(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *extraction.Config
		expected string
	}{
		{
			name:     "missing api key",
			cfg:      &extraction.Config{},
			expected: "api_key required",
		},
		{
			name:     "negative min text length",
			cfg:      &extraction.Config{APIKey: "k", MinTextLength: -1},
			expected: "min_text_length must be positive",
		},
		{
			name:     "negative max pages",
			cfg:      &extraction.Config{APIKey: "k", MaxPages: -2},
			expected: "max_pages must be positive",
		},
		{
			name:     "invalid request timeout",
			cfg:      &extraction.Config{APIKey: "k", RequestTimeout: "soon"},
			expected: "invalid request_timeout",
		},
		{
			name:     "negative input rate",
			cfg:      &extraction.Config{APIKey: "k", InputRatePer1K: -0.001},
			expected: "token rates must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("error = %q, expected to contain %q", err.Error(), tt.expected)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	cfg := &extraction.Config{
		MinTextLength: 50,
		Model:         "gpt-4o",
		APIKey:        "base-key",
	}

	cfg.Merge(&extraction.Config{
		Model:     "gpt-4o-mini",
		MaxTokens: 4096,
	})

	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %s, expected overlay to win", cfg.Model)
	}
	if cfg.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, expected 4096", cfg.MaxTokens)
	}
	if cfg.MinTextLength != 50 {
		t.Errorf("MinTextLength = %d, expected base value preserved", cfg.MinTextLength)
	}
	if cfg.APIKey != "base-key" {
		t.Errorf("APIKey = %s, expected base value preserved", cfg.APIKey)
	}
}

func TestConfigRequestTimeoutDuration(t *testing.T) {
	cfg := &extraction.Config{APIKey: "k", RequestTimeout: "90s"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if got := cfg.RequestTimeoutDuration(); got != 90*time.Second {
		t.Errorf("RequestTimeoutDuration() = %v, expected 90s", got)
	}
}

func TestConfigCostFor(t *testing.T) {
	cfg := &extraction.Config{APIKey: "k"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	tests := []struct {
		name     string
		usage    extraction.Usage
		expected float64
	}{
		{
			name:     "no usage",
			usage:    extraction.Usage{},
			expected: 0,
		},
		{
			name:     "prompt tokens only",
			usage:    extraction.Usage{PromptTokens: 2000},
			expected: 0.005,
		},
		{
			name:     "completion tokens only",
			usage:    extraction.Usage{CompletionTokens: 1000},
			expected: 0.01,
		},
		{
			name:     "both directions",
			usage:    extraction.Usage{PromptTokens: 1000, CompletionTokens: 500},
			expected: 0.0075,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.CostFor(tt.usage)
			if diff := math.Abs(got - tt.expected); diff > 1e-9 {
				t.Errorf("CostFor() = %f, expected %f", got, tt.expected)
			}
		})
	}
}
