package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAcceptedLayouts(t *testing.T) {
	want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{
		"2024-01-10",
		"2024-01-10T00:00:00.000+00:00",
		"2024-01-10T00:00:00Z",
		"2024-01-10 00:00:00",
	} {
		ts, err := Parse(raw)
		require.NoError(t, err, raw)
		require.True(t, ts.Equal(want), "parsed %q to %v, want %v", raw, ts, want)
	}
}

func TestParseKeepsInstantAcrossOffsets(t *testing.T) {
	ts, err := Parse("2024-06-01T10:30:00+02:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC), ts)
}

func TestParseFractionalSeconds(t *testing.T) {
	ts, err := Parse("2024-06-01T10:30:00.123456+00:00")
	require.NoError(t, err)
	require.Equal(t, 123456000, ts.Nanosecond())
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"", "  ", "not-a-date", "10/01/2024", "2024-13-40"} {
		_, err := Parse(raw)
		require.ErrorIs(t, err, ErrMalformedTimestamp, raw)
	}
}
