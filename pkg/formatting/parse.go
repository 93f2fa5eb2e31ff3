package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed reports that no parseable JSON was found in a payload.
var ErrParseFailed = errors.New("failed to parse response")

var fencedBlock = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// Parse unmarshals content as JSON into T. Vision models wrap their JSON
// in prose or markdown fences, so when the payload does not parse whole,
// Parse retries with the contents of a fenced code block and then with the
// first balanced object in the text. Returns ErrParseFailed when no
// candidate parses.
func Parse[T any](content string) (T, error) {
	var out T
	content = strings.TrimSpace(content)

	for _, candidate := range candidates(content) {
		if err := json.Unmarshal([]byte(candidate), &out); err == nil {
			return out, nil
		}
	}

	return out, fmt.Errorf("%w: %s", ErrParseFailed, content)
}

// candidates lists the fragments worth attempting, in order of preference:
// the whole payload, any fenced block, the first balanced object.
func candidates(content string) []string {
	out := []string{content}
	if m := fencedBlock.FindStringSubmatch(content); len(m) >= 2 {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if obj := balancedObject(content); obj != "" {
		out = append(out, obj)
	}
	return out
}

// balancedObject returns the first complete top-level JSON object in s, or
// "" when none exists. Braces inside string literals do not count.
func balancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}
