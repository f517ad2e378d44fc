// Package stats derives statistics and chart series from record snapshots.
//
// This file implements the period windows. Each period has its own window
// function that computes how far back from "now" the period reaches.
package stats

import (
	"fmt"
	"strings"
	"time"
)

const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

const (
	Day        Granularity = "day"
	MonthGrain Granularity = "month"
)

type (
	// Period windows aggregator queries.
	Period string

	// Granularity is the bucket size of a chart series.
	Granularity string
)

// WindowFunc returns the inclusive start of a period ending at now.
type WindowFunc func(now time.Time) time.Time

// windowStrategies maps each period to its window function.
var windowStrategies = map[Period]WindowFunc{
	Week:  func(now time.Time) time.Time { return now.AddDate(0, 0, -7) },
	Month: func(now time.Time) time.Time { return addMonthsClamped(now, -1) },
	Year:  func(now time.Time) time.Time { return addMonthsClamped(now, -12) },
}

// Periods returns every period in display order.
func Periods() []Period {
	return []Period{Week, Month, Year}
}

// ParsePeriod parses a period name.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := windowStrategies[p]; !ok {
		return "", fmt.Errorf("unsupported period: %q", s)
	}
	return p, nil
}

// Start returns the first instant included in period p ending at now.
// Unknown periods fall back to the week window.
func Start(p Period, now time.Time) time.Time {
	window, ok := windowStrategies[p]
	if !ok {
		window = windowStrategies[Week]
	}
	return window(now)
}

// GranularityFor returns the default bucket size for a period: days for the
// week view, months otherwise.
func GranularityFor(p Period) Granularity {
	if p == Week {
		return Day
	}
	return MonthGrain
}

// addMonthsClamped moves t by n calendar months, keeping the time of day.
// When the target month is shorter than t's day of month, the day is clamped
// to the last day of that month instead of overflowing into the next one.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	lastDay := daysIn(target.Year(), target.Month(), t.Location())
	if d > lastDay {
		d = lastDay
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
