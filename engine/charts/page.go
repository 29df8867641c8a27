package charts

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"

	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/export"
)

// Notice levels.
const (
	NoticeInfo  = "info"
	NoticeError = "error"
)

// Notice is an inline message shown above the charts.
type Notice struct {
	Level string
	Text  string
}

// Metric is one headline number.
type Metric struct {
	Label string
	Value string
}

// Section is one chart slot. A section without a chart shows a placeholder.
type Section struct {
	Title string
	Chart Renderer
}

// NewSection pairs a title with a chart. A nil chart pointer yields a
// placeholder section.
func NewSection(title string, c Renderer) Section {
	if !present(c) {
		c = nil
	}
	return Section{Title: title, Chart: c}
}

// Download is a link to an exported file.
type Download struct {
	Label string
	URL   string
}

// PageView is everything the dashboard page shows.
type PageView struct {
	Title       string
	Filters     domain.Filters
	MinYear     int
	MaxYear     int
	Notices     []Notice
	Metrics     []Metric
	Sections    []Section
	Tables      []export.Table
	Downloads   []Download
	Diagnostics []string
}

type sectionView struct {
	Title       string
	HTML        string
	Placeholder string
}

type pageData struct {
	PageView
	Charts []sectionView
}

// RenderPage writes the dashboard as a standalone HTML document. Each chart
// is rendered by go-echarts into its own document and embedded in an iframe.
func RenderPage(w io.Writer, v PageView) error {
	data := pageData{PageView: v}
	for _, s := range v.Sections {
		sv := sectionView{Title: s.Title}
		if s.Chart == nil {
			sv.Placeholder = fmt.Sprintf("No data for %s.", s.Title)
		} else {
			var buf bytes.Buffer
			if err := s.Chart.Render(&buf); err != nil {
				return fmt.Errorf("render chart %q: %w", s.Title, err)
			}
			sv.HTML = buf.String()
		}
		data.Charts = append(data.Charts, sv)
	}
	return pageTemplate.Execute(w, data)
}

func present(c Renderer) bool {
	switch v := c.(type) {
	case *charts.Bar:
		return v != nil
	case *charts.Pie:
		return v != nil
	case *charts.Line:
		return v != nil
	}
	return c != nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:0 auto;max-width:1000px;padding:1rem;color:#222}
form{display:flex;flex-wrap:wrap;gap:.5rem 1rem;margin-bottom:1rem}
label{display:flex;flex-direction:column;font-size:.85rem}
.notice{padding:.5rem 1rem;margin:.5rem 0;border-radius:4px}
.notice.info{background:#e8f1fb}
.notice.error{background:#fde8e8;color:#8a1f1f}
.metrics{display:flex;gap:2rem;margin:1rem 0}
.metric .value{font-size:1.8rem;font-weight:600}
iframe.chart{border:0;width:100%;height:460px}
table{border-collapse:collapse;margin:1rem 0}
td,th{border:1px solid #ddd;padding:.25rem .6rem;text-align:right}
.placeholder{color:#777;font-style:italic}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<form method="get" action="/">
<label>From year<input type="number" name="from_year" min="{{.MinYear}}" max="{{.MaxYear}}" value="{{.Filters.FromYear}}"></label>
<label>To year<input type="number" name="to_year" min="{{.MinYear}}" max="{{.MaxYear}}" value="{{.Filters.ToYear}}"></label>
<label>State code<input name="state_code" value="{{.Filters.StateCode}}"></label>
<label>RTO code<input name="rto_code" value="{{.Filters.RTOCode}}"></label>
<label>Vehicle classes<input name="vehicle_classes" value="{{.Filters.VehicleClasses}}"></label>
<label>Vehicle makers<input name="vehicle_makers" value="{{.Filters.VehicleMakers}}"></label>
<label>Time period<select name="time_period">{{range $p := .Periods}}<option value="{{$p}}"{{if eq $p $.Filters.TimePeriod}} selected{{end}}>{{$p}}</option>{{end}}</select></label>
<label>Fitness check<select name="fitness_check">{{range $p := .FitnessChecks}}<option value="{{$p}}"{{if eq $p $.Filters.FitnessCheck}} selected{{end}}>{{$p}}</option>{{end}}</select></label>
<label>Vehicle type<input name="vehicle_type" value="{{.Filters.VehicleType}}"></label>
<button type="submit">Apply</button>
</form>
{{range .Notices}}<div class="notice {{.Level}}">{{.Text}}</div>
{{end}}
{{if .Metrics}}<div class="metrics">{{range .Metrics}}<div class="metric"><div>{{.Label}}</div><div class="value">{{.Value}}</div></div>{{end}}</div>{{end}}
{{range .Charts}}<section>
<h2>{{.Title}}</h2>
{{if .HTML}}<iframe class="chart" title="{{.Title}}" srcdoc="{{.HTML}}"></iframe>{{else}}<p class="placeholder">{{.Placeholder}}</p>{{end}}
</section>
{{end}}
{{range .Tables}}<section>
<h2>{{.Name}}</h2>
<table><thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table>
</section>
{{end}}
{{if .Downloads}}<h2>Downloads</h2><ul>{{range .Downloads}}<li><a href="{{.URL}}">{{.Label}}</a></li>{{end}}</ul>{{end}}
{{if .Diagnostics}}<details><summary>Requests</summary><ul>{{range .Diagnostics}}<li><code>{{.}}</code></li>{{end}}</ul></details>{{end}}
</body>
</html>
`))

// Periods and FitnessChecks list the select options in ascending order.
func (d pageData) Periods() []int       { return sortedKeys(domain.ValidTimePeriods) }
func (d pageData) FitnessChecks() []int { return sortedKeys(domain.ValidFitnessChecks) }

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
