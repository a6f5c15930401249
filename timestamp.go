package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeDisplayLayout is used wherever a step time is shown to the user
const timeDisplayLayout = "2006-01-02 15:04"

// clockResolution is the finest instant the engine's float seconds can hold
// exactly for present-day dates. Parsed timestamps are rounded to it so a
// step boundary survives the trip through the engine clock.
const clockResolution = time.Microsecond

// timestampLayouts are tried in order. Layouts without a zone are
// interpreted in the caller's location.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
}

// parseTimestamp parses a schedule timestamp field. An empty or
// unrecognized value is an error rather than a zero time.
func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.Round(clockResolution), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// parseTimeInput parses user input from the jump-to-time popup. It accepts
// either a schedule timestamp or raw Unix seconds.
func parseTimeInput(value string, loc *time.Location) (float64, error) {
	value = strings.TrimSpace(value)
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return seconds, nil
	}
	t, err := parseTimestamp(value, loc)
	if err != nil {
		return 0, err
	}
	return unixSeconds(t), nil
}

// unixSeconds converts a time to the engine's float seconds
func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// timeFromSeconds converts engine float seconds back to a time, snapped to
// clockResolution to undo float rounding
func timeFromSeconds(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(math.Round(frac*float64(time.Second)))).Round(clockResolution)
}
