// Package charts builds the dashboard charts with go-echarts and renders the
// HTML page that hosts them.
package charts

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/growth"
)

const (
	chartWidth  = "900px"
	chartHeight = "420px"
)

// Renderer is implemented by every go-echarts chart.
type Renderer interface {
	Render(w io.Writer) error
}

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: title,
		Width:     chartWidth,
		Height:    chartHeight,
	})
}

// Bar draws a distribution as a bar chart. It returns nil for an empty table.
func Bar(title string, rows []domain.LabelValue) *charts.Bar {
	if len(rows) == 0 {
		return nil
	}
	labels := make([]string, len(rows))
	data := make([]opts.BarData, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
		data[i] = opts.BarData{Value: r.Value}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true)}}),
	)
	bar.SetXAxis(labels).AddSeries(title, data)
	return bar
}

// Pie draws a distribution as a pie, or a donut with a 40% hole. It returns
// nil for an empty table.
func Pie(title string, rows []domain.LabelValue, donut bool) *charts.Pie {
	if len(rows) == 0 {
		return nil
	}
	data := make([]opts.PieData, len(rows))
	for i, r := range rows {
		data[i] = opts.PieData{Name: r.Label, Value: r.Value}
	}

	radius := []string{"0%", "70%"}
	if donut {
		radius = []string{"40%", "70%"}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Orient: "vertical", Right: "10"}),
	)
	pie.AddSeries(title, data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
			charts.WithPieChartOpts(opts.PieChart{Radius: radius}),
		)
	return pie
}

// TrendLine draws a registration trend. Points whose period does not parse as
// a date are left out; the rest are ordered by date. It returns nil when no
// point has a valid date.
func TrendLine(title string, points []domain.TrendPoint) *charts.Line {
	type dated struct {
		at    time.Time
		label string
		value float64
	}
	var valid []dated
	for _, p := range points {
		if at, ok := growth.ParsePeriod(p.Period); ok {
			valid = append(valid, dated{at: at, label: p.Period, value: p.Value})
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].at.Before(valid[j].at) })

	labels := make([]string, len(valid))
	data := make([]opts.LineData, len(valid))
	for i, d := range valid {
		labels[i] = d.label
		data[i] = opts.LineData{Value: d.value}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Registrations"}),
	)
	line.SetXAxis(labels).
		AddSeries("Registrations", data).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

// RevenueLines draws one line per year with the period on the x axis. Years
// keep the order they appear in points. It returns nil for an empty table.
func RevenueLines(title string, points []domain.RevenuePoint) *charts.Line {
	if len(points) == 0 {
		return nil
	}
	var years []string
	series := make(map[string]map[int]float64)
	maxPeriod := 0
	for _, p := range points {
		if _, ok := series[p.Year]; !ok {
			years = append(years, p.Year)
			series[p.Year] = make(map[int]float64)
		}
		series[p.Year][p.Period] = p.Value
		maxPeriod = max(maxPeriod, p.Period)
	}

	periods := make([]string, maxPeriod)
	for i := range periods {
		periods[i] = fmt.Sprint(i + 1)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(title),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Period"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Revenue"}),
	)
	line.SetXAxis(periods)
	for _, y := range years {
		data := make([]opts.LineData, maxPeriod)
		for i := range data {
			if v, ok := series[y][i+1]; ok {
				data[i] = opts.LineData{Value: v}
			} else {
				data[i] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries(y, data)
	}
	return line
}

// FormatPercent renders a growth metric for display.
func FormatPercent(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", v)
}
