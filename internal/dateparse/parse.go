// Package dateparse normalizes the timestamp representations the store hands
// back. Depending on column type and driver version the same column can come
// through as RFC3339 with fractional seconds, RFC3339 without, or a bare
// date, so parsing tries each accepted layout in order instead of assuming
// one canonical format.
package dateparse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedTimestamp indicates the raw value matched none of the accepted
// layouts.
var ErrMalformedTimestamp = errors.New("dateparse: malformed timestamp")

var layouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00", // RFC3339 with fractional seconds
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07",    // postgres text form
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

const dateOnly = "2006-01-02"

// Parse converts a raw store timestamp into UTC. Date-only values are taken
// as midnight UTC.
func Parse(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedTimestamp)
	}

	for _, layout := range layouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.UTC(), nil
		}
	}

	if ts, err := time.ParseInLocation(dateOnly, trimmed, time.UTC); err == nil {
		return ts, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
}
