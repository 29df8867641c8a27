// Package export renders normalized tables as CSV files and XLSX workbooks.
package export

import (
	"errors"
	"strconv"

	"github.com/WessleyAI/vahan-insights/engine/domain"
)

// ErrEmptyTable is returned when asked to export a table with no rows.
var ErrEmptyTable = errors.New("export: table has no rows")

// DateLayout is the cell format for dates.
const DateLayout = "2006-01-02"

// Table is a rendered, string-typed table ready for export.
type Table struct {
	Name     string
	Filename string
	Header   []string
	Rows     [][]string
}

// Empty reports whether t has no data rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// FromLabelValues renders a distribution table with a label,value header.
func FromLabelValues(name, filename string, rows []domain.LabelValue) Table {
	t := Table{Name: name, Filename: filename, Header: []string{"label", "value"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Label, formatFloat(r.Value)})
	}
	return t
}

// FromTrend renders a trend with a date,value header. Periods are written
// as received.
func FromTrend(name, filename string, points []domain.TrendPoint) Table {
	t := Table{Name: name, Filename: filename, Header: []string{"date", "value"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []string{p.Period, formatFloat(p.Value)})
	}
	return t
}

// FromGrowth renders a growth table. The change column is named after the
// metric and left blank where the change is undefined.
func FromGrowth(name, filename string, g domain.GrowthTable) Table {
	t := Table{Name: name, Filename: filename, Header: []string{"date", "value", g.Metric}}
	for _, r := range g.Rows {
		change := ""
		if r.Change != nil {
			change = formatFloat(*r.Change)
		}
		t.Rows = append(t.Rows, []string{r.Date.Format(DateLayout), formatFloat(r.Value), change})
	}
	return t
}

// FromRevenue renders the multi-series revenue trend.
func FromRevenue(name, filename string, points []domain.RevenuePoint) Table {
	t := Table{Name: name, Filename: filename, Header: []string{"year", "period", "value"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []string{p.Year, strconv.Itoa(p.Period), formatFloat(p.Value)})
	}
	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
