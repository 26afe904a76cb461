package facade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatusFromErrors(t *testing.T) {
	require.Equal(t, "Activo", statusFromErrors(0))
	require.Equal(t, "Optimizando", statusFromErrors(1))
	require.Equal(t, "Optimizando", statusFromErrors(2))
	require.Equal(t, "En revision", statusFromErrors(3))
	require.Equal(t, "En revision", statusFromErrors(10))
}

func TestSeverityFromError(t *testing.T) {
	require.Equal(t, "critical", severityFromError("Critical: disk full"))
	require.Equal(t, "critical", severityFromError("Fatal error encountered"))
	require.Equal(t, "critical", severityFromError("Traceback (most recent call last)"))
	require.Equal(t, "warning", severityFromError("Website enrichment: timeout"))
}

func TestBucketStartRoundsDownToTenMinutes(t *testing.T) {
	in := time.Date(2026, 7, 29, 14, 37, 42, 0, time.UTC)
	got := bucketStart(in)
	want := time.Date(2026, 7, 29, 14, 30, 0, 0, time.UTC)
	require.Equal(t, want, got)
}

func TestParseISODatetimeAcceptsTrailingZ(t *testing.T) {
	got, err := parseISODatetime("2026-07-29T10:00:00Z")
	require.NoError(t, err)
	require.Equal(t, 2026, got.Year())
	require.Equal(t, time.UTC, got.Location())
}

func TestParseISODatetimeRejectsEmpty(t *testing.T) {
	_, err := parseISODatetime("  ")
	require.Error(t, err)
}

func TestToISOZOmitsFractionOnWholeSeconds(t *testing.T) {
	in := time.Date(2026, 2, 18, 12, 30, 0, 0, time.UTC)
	require.Equal(t, "2026-02-18T12:30:00Z", toISOZ(in))
}

func TestToISOZKeepsMicrosecondsWhenPresent(t *testing.T) {
	in := time.Date(2026, 2, 18, 12, 30, 0, 500000000, time.UTC)
	require.Equal(t, "2026-02-18T12:30:00.500000Z", toISOZ(in))
}

func TestSuccessRateDecreasesWithErrors(t *testing.T) {
	require.InDelta(t, 100.0, successRate(0), 0.001)
	require.InDelta(t, 75.0, successRate(1), 0.001)
	require.InDelta(t, 0.0, successRate(5), 0.001)
}
