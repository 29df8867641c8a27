// Package growth derives year-over-year and quarter-over-quarter percentage
// change from a registration trend.
package growth

import (
	"sort"
	"time"

	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/pkg/fn"
)

type dated struct {
	at    time.Time
	value float64
}

// ComputeYoY resamples points into calendar-month buckets and compares each
// bucket with the one twelve months earlier.
func ComputeYoY(points []domain.TrendPoint) domain.GrowthTable {
	return compute(domain.MetricYoY, points, monthStart, 1, 12)
}

// ComputeQoQ resamples points into calendar-quarter buckets and compares
// each bucket with the previous quarter.
func ComputeQoQ(points []domain.TrendPoint) domain.GrowthTable {
	return compute(domain.MetricQoQ, points, quarterStart, 3, 1)
}

// compute buckets the parseable points, fills the gaps between the first and
// last bucket with zero, then computes the percent change against the bucket
// lag positions back. Change is nil when there is no such bucket or its value
// is zero.
func compute(metric string, points []domain.TrendPoint, bucket func(time.Time) time.Time, stepMonths, lag int) domain.GrowthTable {
	table := domain.GrowthTable{Metric: metric, Rows: []domain.GrowthRow{}}

	rows := fn.FilterMap(points, func(p domain.TrendPoint) (dated, bool) {
		at, ok := ParsePeriod(p.Period)
		return dated{at: bucket(at), value: p.Value}, ok
	})
	if len(rows) == 0 {
		return table
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	sums := make(map[time.Time]float64, len(rows))
	for _, r := range rows {
		sums[r.at] += r.value
	}

	last := rows[len(rows)-1].at
	for at := rows[0].at; !at.After(last); at = at.AddDate(0, stepMonths, 0) {
		table.Rows = append(table.Rows, domain.GrowthRow{Date: at, Value: sums[at]})
	}
	for i := lag; i < len(table.Rows); i++ {
		prev := table.Rows[i-lag].Value
		if prev == 0 {
			continue
		}
		change := (table.Rows[i].Value - prev) / prev * 100
		table.Rows[i].Change = &change
	}
	return table
}

// Latest returns the most recent non-nil change.
func Latest(t domain.GrowthTable) (float64, bool) {
	for i := len(t.Rows) - 1; i >= 0; i-- {
		if c := t.Rows[i].Change; c != nil {
			return *c, true
		}
	}
	return 0, false
}

// Tail returns a copy of t holding only its last n rows.
func Tail(t domain.GrowthTable, n int) domain.GrowthTable {
	if n < 0 {
		n = 0
	}
	start := max(len(t.Rows)-n, 0)
	t.Rows = append([]domain.GrowthRow(nil), t.Rows[start:]...)
	return t
}
