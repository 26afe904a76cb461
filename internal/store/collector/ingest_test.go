package collector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMetricValueClassification(t *testing.T) {
	// Booleans are text, not numbers, and keep Python's str(bool)
	// capitalization (spec.md §9 / scenario 1).
	mv := NewMetricValue(true)
	require.False(t, mv.IsNumber)
	require.Equal(t, "True", mv.Text)

	mv = NewMetricValue(false)
	require.False(t, mv.IsNumber)
	require.Equal(t, "False", mv.Text)

	mv = NewMetricValue(float64(3))
	require.True(t, mv.IsNumber)
	require.Equal(t, float64(3), mv.Number)

	mv = NewMetricValue("ok")
	require.False(t, mv.IsNumber)
	require.Equal(t, "ok", mv.Text)
}
