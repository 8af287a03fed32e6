package common

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateOnly is a calendar day in a search range. Days are UTC, matching the
// stored punch timestamps.
type DateOnly struct {
	time.Time
}

type DateError struct {
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("date %q must be YYYY-MM-DD", e.Value)
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}

	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return &DateError{Value: s}
	}
	d.Time = t
	return nil
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Format(dateLayout))
}

// InRange reports whether ts falls on or after from and on or before the
// whole day of to. A nil or empty bound is open.
func InRange(ts time.Time, from, to *DateOnly) bool {
	if from != nil && !from.IsZero() && ts.Before(from.Time) {
		return false
	}
	if to != nil && !to.IsZero() && !ts.Before(to.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
