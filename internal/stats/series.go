package stats

import (
	"sort"
	"time"

	"coffee/internal/core"
)

// ChartPoint is one bucket of a consumption chart.
type ChartPoint struct {
	Date   time.Time // start of the bucket
	Amount float64
	Spend  float64
	Count  int
	Type   core.CoffeeType // representative type, used for coloring
}

// PricePoint is one café purchase on the price chart.
type PricePoint struct {
	Date  time.Time
	Price float64
}

type bucket struct {
	point    ChartPoint
	byType   map[core.CoffeeType]float64
	perCount map[core.CoffeeType]int
}

// SeriesForChart windows records to period p ending at now and buckets them
// by granularity g in now's location. Points are sorted by bucket date.
func SeriesForChart(records []core.Record, p Period, g Granularity, now time.Time) []ChartPoint {
	buckets := make(map[int64]*bucket)
	for _, r := range FilterByPeriod(records, p, now) {
		start := bucketStart(r.Date.In(now.Location()), g)
		key := start.Unix()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				point:    ChartPoint{Date: start},
				byType:   make(map[core.CoffeeType]float64),
				perCount: make(map[core.CoffeeType]int),
			}
			buckets[key] = b
		}
		b.point.Amount += r.Amount
		b.point.Spend += r.PriceOrZero()
		b.point.Count++
		b.byType[r.Type] += r.Amount
		b.perCount[r.Type]++
	}

	out := make([]ChartPoint, 0, len(buckets))
	for _, b := range buckets {
		b.point.Type = b.representative()
		out = append(out, b.point)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// representative picks the type with the largest amount in the bucket, then
// the most records, then declaration order.
func (b *bucket) representative() core.CoffeeType {
	var best core.CoffeeType
	for _, t := range core.CoffeeTypes() {
		if b.perCount[t] == 0 {
			continue
		}
		if best == "" ||
			b.byType[t] > b.byType[best] ||
			(b.byType[t] == b.byType[best] && b.perCount[t] > b.perCount[best]) {
			best = t
		}
	}
	return best
}

// PriceSeries returns the priced records of period p ending at now, oldest first.
func PriceSeries(records []core.Record, p Period, now time.Time) []PricePoint {
	out := make([]PricePoint, 0)
	for _, r := range FilterByPeriod(records, p, now) {
		if r.Price == nil {
			continue
		}
		out = append(out, PricePoint{Date: r.Date, Price: *r.Price})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func bucketStart(t time.Time, g Granularity) time.Time {
	if g == MonthGrain {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return core.StartOfDay(t)
}
