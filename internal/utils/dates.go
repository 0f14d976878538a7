package utils

import (
	"fmt"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// ParseDueDate parses a due-date string in either date-only ("2025-03-01")
// or RFC3339 form. Date-only values are anchored at midnight UTC so they
// format back to the same date string.
func ParseDueDate(value string) (*time.Time, error) {
	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", value, err)
	}
	t = t.UTC()
	return &t, nil
}
