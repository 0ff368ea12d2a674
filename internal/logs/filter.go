package logs

import (
	"encoding/json"
	"strings"

	"overlay/internal/logging"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter selects JSON log lines by field. Empty fields match everything.
type Filter struct {
	Renderer  string
	AttemptID string
	EventType string
	MinLevel  string
}

// IsZero reports whether the filter matches every line.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether line passes the filter. Lines that are not JSON
// objects only pass an empty filter.
func (f Filter) Match(line string) bool {
	if f.IsZero() {
		return true
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return false
	}
	if !fieldMatches(record, logging.FieldRenderer, f.Renderer) ||
		!fieldMatches(record, logging.FieldAttemptID, f.AttemptID) ||
		!fieldMatches(record, logging.FieldEventType, f.EventType) {
		return false
	}
	if floor := strings.ToLower(strings.TrimSpace(f.MinLevel)); floor != "" {
		level, _ := record["level"].(string)
		if levelRank[strings.ToLower(level)] < levelRank[floor] {
			return false
		}
	}
	return true
}

// Apply returns the lines that pass the filter.
func (f Filter) Apply(lines []string) []string {
	if f.IsZero() {
		return lines
	}
	kept := lines[:0:0]
	for _, line := range lines {
		if f.Match(line) {
			kept = append(kept, line)
		}
	}
	return kept
}

func fieldMatches(record map[string]any, key, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		return true
	}
	got, _ := record[key].(string)
	return got == want
}
