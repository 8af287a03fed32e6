package utils

import (
	"fmt"
	"time"
)

// OffsetZone returns a fixed zone for an offset given in seconds east of UTC.
func OffsetZone(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+03d:%02d", offset/3600, abs(offset%3600)/60), offset)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func ParseISOTime(s string) (*time.Time, error) {
	return ParseTimeIn(s, time.UTC)
}

// ParseTimeIn parses an ISO 8601 timestamp. Values without a zone are taken
// to be in loc.
func ParseTimeIn(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, fmt.Errorf("empty time string")
	}

	// Try standard RFC3339 format (ISO 8601)
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return &t, nil
	}

	// Try with nanoseconds (e.g. 2025-10-13T09:30:00.123Z)
	t, err = time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return &t, nil
	}

	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if tt, e := time.ParseInLocation(layout, s, loc); e == nil {
			return &tt, nil
		}
	}

	return nil, fmt.Errorf("failed to parse time: %v", s)
}
