package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScheduleTime(t *testing.T) {
	st, err := ParseScheduleTime("09:30")
	require.NoError(t, err)
	require.Equal(t, ScheduleTime{Hour: 9, Minute: 30}, st)

	require.True(t, st.AtOrAfter(9, 30))
	require.True(t, st.AtOrAfter(10, 0))
	require.False(t, st.AtOrAfter(9, 0))

	_, err = ParseScheduleTime("25:00")
	require.Error(t, err)
	_, err = ParseScheduleTime("bad")
	require.Error(t, err)
}

func TestParseScheduleDaysWildcard(t *testing.T) {
	days, err := ParseScheduleDays("*")
	require.NoError(t, err)
	for d := 1; d <= 7; d++ {
		require.True(t, days[d], "day %d should be allowed", d)
	}
}

func TestParseScheduleDaysWrappingRange(t *testing.T) {
	// "5-1" wraps past Sunday: Fri, Sat, Sun, Mon.
	days, err := ParseScheduleDays("5-1")
	require.NoError(t, err)
	require.Equal(t, map[int]bool{5: true, 6: true, 7: true, 1: true}, days)
}

func TestParseScheduleDaysCommaList(t *testing.T) {
	days, err := ParseScheduleDays("1,3,5")
	require.NoError(t, err)
	require.Equal(t, map[int]bool{1: true, 3: true, 5: true}, days)
}

func TestParseScheduleDaysEmptyIsError(t *testing.T) {
	_, err := ParseScheduleDays("")
	require.Error(t, err)
}

func TestParseScheduleDaysInvalidValue(t *testing.T) {
	_, err := ParseScheduleDays("9")
	require.Error(t, err)
}

func TestLoadTimezoneFallsBackToUTC(t *testing.T) {
	loc, fellBack := LoadTimezone("Not/AZone")
	require.True(t, fellBack)
	require.Equal(t, "UTC", loc.String())

	loc, fellBack = LoadTimezone("UTC")
	require.False(t, fellBack)
	require.Equal(t, "UTC", loc.String())
}

func TestParseCityResetTarget(t *testing.T) {
	city, country := ParseCityResetTarget("Bogota, Colombia")
	require.Equal(t, "Bogota", city)
	require.Equal(t, "Colombia", country)

	city, country = ParseCityResetTarget("Madrid")
	require.Equal(t, "Madrid", city)
	require.Equal(t, "", country)

	city, country = ParseCityResetTarget("")
	require.Equal(t, "", city)
	require.Equal(t, "", country)
}
