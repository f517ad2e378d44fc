package stats

import (
	"sort"
	"time"

	"coffee/internal/core"
)

// TypeCount is the number of records of one coffee type.
type TypeCount struct {
	Type  core.CoffeeType
	Count int
}

// Summary is the headline figures of a snapshot.
type Summary struct {
	Count         int
	TotalAmount   float64 // milliliters
	TotalSpend    float64
	AveragePerDay float64
}

// FilterByDay returns the records whose date falls on the calendar day of
// day, evaluated in day's location. Input order is preserved.
func FilterByDay(records []core.Record, day time.Time) []core.Record {
	y, m, d := day.Date()
	out := make([]core.Record, 0)
	for _, r := range records {
		ry, rm, rd := r.Date.In(day.Location()).Date()
		if ry == y && rm == m && rd == d {
			out = append(out, r)
		}
	}
	return out
}

// FilterByPeriod returns the records dated at or after the start of period p
// ending at now. Input order is preserved.
func FilterByPeriod(records []core.Record, p Period, now time.Time) []core.Record {
	start := Start(p, now)
	out := make([]core.Record, 0)
	for _, r := range records {
		if !r.Date.Before(start) {
			out = append(out, r)
		}
	}
	return out
}

// TotalAmount sums the amounts in milliliters.
func TotalAmount(records []core.Record) float64 {
	var total float64
	for _, r := range records {
		total += r.Amount
	}
	return total
}

// TotalSpend sums the prices. Records without a price contribute nothing.
func TotalSpend(records []core.Record) float64 {
	var total float64
	for _, r := range records {
		total += r.PriceOrZero()
	}
	return total
}

// AveragePerDay is the number of records divided by the whole days elapsed
// since the oldest one, with a floor of one day. Empty input yields 0.
func AveragePerDay(records []core.Record, now time.Time) float64 {
	if len(records) == 0 {
		return 0
	}
	oldest := records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(oldest) {
			oldest = r.Date
		}
	}
	days := wholeDaysBetween(oldest, now)
	if days < 1 {
		days = 1
	}
	return float64(len(records)) / float64(days)
}

// CountByType counts records per type. Only types that occur are returned,
// ordered by count descending and then by declaration order.
func CountByType(records []core.Record) []TypeCount {
	counts := make(map[core.CoffeeType]int)
	for _, r := range records {
		counts[r.Type]++
	}
	out := make([]TypeCount, 0, len(counts))
	for _, t := range core.CoffeeTypes() {
		if n := counts[t]; n > 0 {
			out = append(out, TypeCount{Type: t, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Summarize computes the headline figures for records.
func Summarize(records []core.Record, now time.Time) Summary {
	return Summary{
		Count:         len(records),
		TotalAmount:   TotalAmount(records),
		TotalSpend:    TotalSpend(records),
		AveragePerDay: AveragePerDay(records, now),
	}
}

// wholeDaysBetween counts the full calendar days from from to to, in to's
// location. It is 0 when to is not after from.
func wholeDaysBetween(from, to time.Time) int {
	from = from.In(to.Location())
	if !to.After(from) {
		return 0
	}
	d := int(to.Sub(from).Hours() / 24)
	for d > 0 && from.AddDate(0, 0, d).After(to) {
		d--
	}
	for !from.AddDate(0, 0, d+1).After(to) {
		d++
	}
	return d
}
