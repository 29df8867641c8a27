package dashboard

import (
	"fmt"

	"github.com/WessleyAI/vahan-insights/engine/charts"
	"github.com/WessleyAI/vahan-insights/engine/export"
	"github.com/WessleyAI/vahan-insights/engine/growth"
)

// Export file names.
const (
	FileCategories        = "category_distribution.csv"
	FileTopMakers         = "top_makers.csv"
	FileTrend             = "registrations_monthly.csv"
	FileYoY               = "registrations_yoy.csv"
	FileQoQ               = "registrations_qoq.csv"
	FileDurationQuarterly = "duration_quarterly.csv"
	FileDurationYearly    = "duration_yearly.csv"
	FileDurationMonthly   = "duration_monthly.csv"
	FileTopRevenue        = "top5_revenue_states.csv"
	FileRevenueTrend      = "revenue_trend.csv"
	FileWorkbook          = "dashboard.xlsx"
)

// AllTables returns every table of d in page order, empty ones included.
func (d *Dashboard) AllTables() []export.Table {
	return []export.Table{
		export.FromLabelValues("Category distribution", FileCategories, d.Categories),
		export.FromLabelValues("Top makers", FileTopMakers, d.TopMakers),
		export.FromTrend("Registration trend", FileTrend, d.Trend),
		export.FromGrowth("YoY growth", FileYoY, d.YoY),
		export.FromGrowth("QoQ growth", FileQoQ, d.QoQ),
		export.FromLabelValues("Quarterly registrations", FileDurationQuarterly, d.DurationQuarterly),
		export.FromLabelValues("Yearly registrations", FileDurationYearly, d.DurationYearly),
		export.FromLabelValues("Monthly registrations", FileDurationMonthly, d.DurationMonthly),
		export.FromLabelValues("Top 5 revenue states", FileTopRevenue, d.TopRevenue),
		export.FromRevenue("Revenue trend", FileRevenueTrend, d.RevenueTrend),
	}
}

// Tables returns the exportable tables: those with at least one row.
func (d *Dashboard) Tables() []export.Table {
	var out []export.Table
	for _, t := range d.AllTables() {
		if !t.Empty() {
			out = append(out, t)
		}
	}
	return out
}

// Table looks up a non-empty table by file name.
func (d *Dashboard) Table(filename string) (export.Table, bool) {
	for _, t := range d.Tables() {
		if t.Filename == filename {
			return t, true
		}
	}
	return export.Table{}, false
}

// YoYTail is the YoY table limited to the last twelve months.
func (d *Dashboard) YoYTail() export.Table {
	return export.FromGrowth("YoY% by month", FileYoY, growth.Tail(d.YoY, 12))
}

// QoQByQuarter is the QoQ table with quarter labels in the date column.
func (d *Dashboard) QoQByQuarter() export.Table {
	t := export.FromGrowth("QoQ% by quarter", FileQoQ, d.QoQ)
	t.Header[0] = "quarter"
	for i, r := range d.QoQ.Rows {
		t.Rows[i][0] = growth.QuarterLabel(r.Date)
	}
	return t
}

// Summary is a one-line description of the render.
func (d *Dashboard) Summary() string {
	return fmt.Sprintf("%d-%d: %d categories, %d trend points, %d tables, latest YoY %s, latest QoQ %s",
		d.Filters.FromYear, d.Filters.ToYear, len(d.Categories), len(d.Trend), len(d.Tables()),
		pct(d.LatestYoY), pct(d.LatestQoQ))
}

func pct(v *float64) string {
	if v == nil {
		return charts.FormatPercent(0, false)
	}
	return charts.FormatPercent(*v, true)
}
