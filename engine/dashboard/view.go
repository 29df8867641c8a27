package dashboard

import (
	"time"

	"github.com/WessleyAI/vahan-insights/engine/charts"
	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/export"
)

// PageTitle is the dashboard heading.
const PageTitle = "Vahan Registrations: Investor Dashboard"

// View lays d out as a page. Download links point at exportBase joined with
// each table's file name.
func (d *Dashboard) View(now time.Time, exportBase string) charts.PageView {
	v := charts.PageView{
		Title:       PageTitle,
		Filters:     d.Filters,
		MinYear:     domain.MinYear,
		MaxYear:     now.Year(),
		Diagnostics: d.Requests,
	}
	if d.TrendError != "" {
		v.Notices = append(v.Notices, charts.Notice{Level: charts.NoticeError, Text: d.TrendError})
	}

	v.Sections = append(v.Sections,
		charts.NewSection("Category distribution (bar)", charts.Bar("Category distribution", d.Categories)),
		charts.NewSection("Category distribution (pie)", charts.Pie("Category distribution", d.Categories, true)),
	)
	if d.TopMakers != nil {
		v.Sections = append(v.Sections,
			charts.NewSection("Top makers by registrations", charts.Bar("Top makers", d.TopMakers)))
	}
	v.Sections = append(v.Sections,
		charts.NewSection("Registrations trend", charts.TrendLine("Registrations trend", d.Trend)))

	v.Metrics = []charts.Metric{
		{Label: "Latest YoY%", Value: pct(d.LatestYoY)},
		{Label: "Latest QoQ%", Value: pct(d.LatestQoQ)},
	}
	for _, t := range []export.Table{d.YoYTail(), d.QoQByQuarter()} {
		if !t.Empty() {
			v.Tables = append(v.Tables, t)
		}
	}

	for _, s := range []struct {
		title string
		rows  []domain.LabelValue
	}{
		{"Quarterly Growth", d.DurationQuarterly},
		{"Yearly Growth", d.DurationYearly},
		{"Monthly Growth", d.DurationMonthly},
		{"Top 5 Revenue States", d.TopRevenue},
	} {
		v.Sections = append(v.Sections,
			charts.NewSection(s.title+" (bar)", charts.Bar(s.title, s.rows)),
			charts.NewSection(s.title+" (pie)", charts.Pie(s.title, s.rows, true)),
		)
	}
	v.Sections = append(v.Sections,
		charts.NewSection("Revenue Trend Comparison", charts.RevenueLines("Revenue Trend Comparison", d.RevenueTrend)))

	tables := d.Tables()
	for _, t := range tables {
		v.Downloads = append(v.Downloads, charts.Download{Label: t.Name + " CSV", URL: exportBase + t.Filename})
	}
	if len(tables) > 0 {
		v.Downloads = append(v.Downloads, charts.Download{Label: "All tables (XLSX)", URL: exportBase + FileWorkbook})
	}
	return v
}
