// Package configure provides helpers for layered configuration resolution.
// Settings resolve in three passes: compiled defaults, then file overlays,
// then environment overrides. Each helper applies one field of one pass.
package configure

import (
	"os"
	"strconv"
	"strings"
)

// Default assigns fallback to *dst when *dst holds the zero value.
func Default[T comparable](dst *T, fallback T) {
	var zero T
	if *dst == zero {
		*dst = fallback
	}
}

// Merge overwrites *dst with src when src is non-zero.
func Merge[T comparable](dst *T, src T) {
	var zero T
	if src != zero {
		*dst = src
	}
}

// MergeList overwrites *dst with src when src is non-nil. An empty non-nil
// slice is an explicit override.
func MergeList(dst *[]string, src []string) {
	if src != nil {
		*dst = src
	}
}

// Env overrides *dst with the named environment variable when both the
// name and the variable are set.
func Env(name string, dst *string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// EnvInt overrides *dst when the named variable holds a valid integer.
func EnvInt(name string, dst *int) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// EnvFloat overrides *dst when the named variable holds a valid float.
func EnvFloat(name string, dst *float64) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// EnvList overrides *dst from a comma-separated variable, trimming
// whitespace around each element and dropping empty elements.
func EnvList(name string, dst *[]string) {
	if name == "" {
		return
	}
	v := os.Getenv(name)
	if v == "" {
		return
	}

	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		*dst = items
	}
}
