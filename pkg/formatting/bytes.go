// Package formatting provides human-readable formatting and parsing
// helpers for byte sizes and loosely structured model output.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
)

// unitScale maps a size suffix to its base-1024 multiplier.
var unitScale = []struct {
	suffix string
	scale  float64
}{
	{"B", 1},
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"TB", 1 << 40},
	{"PB", 1 << 50},
	{"EB", 1 << 60},
	{"ZB", 1 << 70},
	{"YB", 1 << 80},
}

// FormatBytes renders n as a human-readable base-1024 size, such as
// "1.5 MB". Negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	if n == 0 {
		return "0 B"
	}
	if precision < 0 {
		precision = 0
	}

	size := float64(n)
	idx := 0
	for size >= 1024 && idx < len(unitScale)-1 {
		size /= 1024
		idx++
	}

	return strconv.FormatFloat(size, 'f', precision, 64) + " " + unitScale[idx].suffix
}

// ParseBytes converts a size such as "100MB" or "1.5 gb" into a byte
// count. Suffixes are case-insensitive and base-1024; a bare number is a
// byte count. An optional space may separate number and suffix.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	cut := len(s)
	for cut > 0 && !isDigitOrDot(s[cut-1]) {
		cut--
	}
	num := s[:cut]
	suffix := strings.ToUpper(strings.TrimSpace(s[cut:]))

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative byte size %q", s)
	}

	if suffix == "" {
		return int64(value), nil
	}
	for _, u := range unitScale {
		if u.suffix == suffix {
			return int64(value * u.scale), nil
		}
	}
	return 0, fmt.Errorf("unknown byte size unit %q", suffix)
}

func isDigitOrDot(c byte) bool {
	return c >= '0' && c <= '9' || c == '.'
}
