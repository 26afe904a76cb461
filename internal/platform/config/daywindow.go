package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleTime is a parsed HH:MM wall-clock target.
type ScheduleTime struct {
	Hour   int
	Minute int
}

// ParseScheduleTime parses "HH:MM" (24h), as scheduler.py's
// _parse_schedule_time does for the pipeline process's own daily
// trigger (spec.md §4.E.6), distinct from the §4.D scheduler's cron
// triggers.
func ParseScheduleTime(value string) (ScheduleTime, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return ScheduleTime{}, fmt.Errorf("invalid SCHEDULE_TIME %q: use HH:MM format", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid SCHEDULE_TIME %q: %w", value, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid SCHEDULE_TIME %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ScheduleTime{}, fmt.Errorf("invalid SCHEDULE_TIME %q: hour/minute out of range", value)
	}
	return ScheduleTime{Hour: hour, Minute: minute}, nil
}

// AtOrAfter reports whether (hour, minute) is at or past t.
func (t ScheduleTime) AtOrAfter(hour, minute int) bool {
	return (hour > t.Hour) || (hour == t.Hour && minute >= t.Minute)
}

func (t ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// expandDayRange expands an ISO-weekday range [start, end], wrapping
// past 7 back to 1 when end < start (scheduler.py's _expand_day_range,
// e.g. "5-1" = {5,6,7,1}).
func expandDayRange(start, end int) map[int]bool {
	out := make(map[int]bool)
	if start <= end {
		for d := start; d <= end; d++ {
			out[d] = true
		}
		return out
	}
	for d := start; d <= 7; d++ {
		out[d] = true
	}
	for d := 1; d <= end; d++ {
		out[d] = true
	}
	return out
}

// ParseScheduleDays parses SCHEDULE_DAYS per spec.md §4.E.6 / §8:
// "*" = every ISO weekday (1-7), "1-5" = a range, "5-1" wraps, and
// comma lists combine any of the above. An empty result is an error.
func ParseScheduleDays(value string) (map[int]bool, error) {
	raw := strings.TrimSpace(value)
	if raw == "*" {
		return expandDayRange(1, 7), nil
	}

	allowed := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		if strings.Contains(token, "-") {
			bounds := strings.SplitN(token, "-", 2)
			start, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err1 != nil || err2 != nil || start < 1 || start > 7 || end < 1 || end > 7 {
				return nil, fmt.Errorf("invalid day range %q: use values 1-7", token)
			}
			for d := range expandDayRange(start, end) {
				allowed[d] = true
			}
			continue
		}
		day, err := strconv.Atoi(token)
		if err != nil || day < 1 || day > 7 {
			return nil, fmt.Errorf("invalid day %q: use values 1-7", token)
		}
		allowed[day] = true
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("SCHEDULE_DAYS resolved to an empty set")
	}
	return allowed, nil
}

// LoadTimezone resolves tzName via time.LoadLocation, falling back to
// UTC (and reporting that fallback) on an unknown name, mirroring
// scheduler.py's _get_timezone ZoneInfoNotFoundError handling.
func LoadTimezone(tzName string) (*time.Location, bool) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.UTC, true
	}
	return loc, false
}

// ParseCityResetTarget parses CITY_ROTATION_RESET_TO from "City" or
// "City, Country" (scheduler.py's _parse_city_reset_target).
func ParseCityResetTarget(value string) (city, country string) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return "", ""
	}
	if idx := strings.Index(raw, ","); idx >= 0 {
		return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+1:])
	}
	return raw, ""
}
