// Package dashboard runs one dashboard render: it fetches every endpoint in
// order, normalizes the payloads and derives the growth metrics.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/growth"
	"github.com/WessleyAI/vahan-insights/engine/normalize"
	"github.com/WessleyAI/vahan-insights/engine/query"
	"github.com/WessleyAI/vahan-insights/engine/vahan"
	"github.com/WessleyAI/vahan-insights/pkg/fn"
	"github.com/WessleyAI/vahan-insights/pkg/metrics"
)

// Fetcher retrieves one decoded payload. *vahan.Client implements it.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, params query.Params) (any, string, error)
}

// Dashboard is the result of one render.
type Dashboard struct {
	Filters           domain.Filters        `json:"filters"`
	Categories        []domain.LabelValue   `json:"categories"`
	TopMakers         []domain.LabelValue   `json:"top_makers,omitempty"`
	Trend             []domain.TrendPoint   `json:"trend"`
	TrendError        string                `json:"trend_error,omitempty"`
	YoY               domain.GrowthTable    `json:"yoy"`
	QoQ               domain.GrowthTable    `json:"qoq"`
	LatestYoY         *float64              `json:"latest_yoy"`
	LatestQoQ         *float64              `json:"latest_qoq"`
	DurationQuarterly []domain.LabelValue   `json:"duration_quarterly"`
	DurationYearly    []domain.LabelValue   `json:"duration_yearly"`
	DurationMonthly   []domain.LabelValue   `json:"duration_monthly"`
	TopRevenue        []domain.LabelValue   `json:"top_revenue"`
	RevenueTrend      []domain.RevenuePoint `json:"revenue_trend"`
	Requests          []string              `json:"requests"`
}

// Service builds dashboards. It holds no per-render state and is safe for
// concurrent use.
type Service struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger
}

// Options configures the render.
type Options struct {
	IncludeTopMakers bool
	// Metrics receives render and normalization counters when set.
	Metrics *metrics.Registry
}

// DefaultOptions returns the dashboard defaults: top makers off, no metrics.
func DefaultOptions() Options {
	return Options{}
}

// New creates a Service.
func New(f Fetcher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: f, opts: opts, logger: logger}
}

// Build renders the dashboard for f. Endpoints are called strictly in
// sequence with one shared parameter set. Any fetch failure aborts the
// render. A trend payload that cannot be parsed does not: the error is kept
// in TrendError and the growth metrics are computed on an empty series.
func (s *Service) Build(ctx context.Context, f domain.Filters) (*Dashboard, error) {
	params := query.BuildParams(f, query.Params{})
	d := &Dashboard{Filters: f}

	raw, err := s.fetch(ctx, d, vahan.EndpointCategories, params)
	if err != nil {
		return nil, err
	}
	d.Categories = countRows(s, "categories", normalize.LabelValues(raw, normalize.DefaultOptions()))

	if s.opts.IncludeTopMakers {
		raw, err = s.fetch(ctx, d, vahan.EndpointTopMakers, params)
		if err != nil {
			return nil, err
		}
		d.TopMakers = countRows(s, "top_makers", normalize.TopMakers(raw))
	}

	raw, err = s.fetch(ctx, d, vahan.EndpointYearWiseTrend, params)
	if err != nil {
		return nil, err
	}
	trend := fn.FromPair(normalize.YearWiseTrend(raw))
	if _, terr := trend.Unwrap(); terr != nil {
		d.TrendError = fmt.Sprintf("Trend parsing failed: %v", terr)
		s.logger.Warn("trend parse failed", "err", terr)
		if s.opts.Metrics != nil {
			s.opts.Metrics.Counter("vahan_trend_parse_failures_total", "Trend payloads that produced no rows.").Inc()
		}
	}
	d.Trend = trend.UnwrapOr([]domain.TrendPoint{})
	countRows(s, "trend", d.Trend)

	d.YoY = growth.ComputeYoY(d.Trend)
	d.QoQ = growth.ComputeQoQ(d.Trend)
	d.LatestYoY = latest(d.YoY)
	d.LatestQoQ = latest(d.QoQ)
	s.recordLatest(d.YoY.Metric, d.LatestYoY)
	s.recordLatest(d.QoQ.Metric, d.LatestQoQ)

	for _, dur := range []struct {
		cal  domain.CalendarType
		dest *[]domain.LabelValue
	}{
		{domain.CalendarQuarterly, &d.DurationQuarterly},
		{domain.CalendarYearly, &d.DurationYearly},
		{domain.CalendarMonthly, &d.DurationMonthly},
	} {
		raw, err = s.fetch(ctx, d, vahan.EndpointDurationWise, query.WithCalendarType(params, dur.cal))
		if err != nil {
			return nil, err
		}
		*dur.dest = countRows(s, "duration_"+dur.cal.String(), normalize.DurationWise(raw))
	}

	raw, err = s.fetch(ctx, d, vahan.EndpointTopRevenue, params)
	if err != nil {
		return nil, err
	}
	d.TopRevenue = countRows(s, "top_revenue", normalize.TopRevenue(raw))

	raw, err = s.fetch(ctx, d, vahan.EndpointRevenueTrend, params)
	if err != nil {
		return nil, err
	}
	d.RevenueTrend = countRows(s, "revenue_trend", normalize.RevenueTrend(raw))

	if s.opts.Metrics != nil {
		s.opts.Metrics.Counter("vahan_renders_total", "Completed dashboard renders.").Inc()
	}
	return d, nil
}

func (s *Service) fetch(ctx context.Context, d *Dashboard, endpoint string, params query.Params) (any, error) {
	stage := fn.TracedStage("vahan."+endpoint, func(ctx context.Context, p query.Params) fn.Result[any] {
		raw, url, err := s.fetcher.GetJSON(ctx, endpoint, p)
		d.Requests = append(d.Requests, url)
		return fn.FromPair(raw, err)
	})
	raw, err := stage(ctx, params).Unwrap()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	return raw, nil
}

// countRows records the row count of a normalized table and passes it through.
func countRows[T any](s *Service, table string, rows []T) []T {
	if s.opts.Metrics != nil {
		s.opts.Metrics.Counter(metrics.WithLabels("vahan_normalize_rows_total", "table", table),
			"Rows produced by the normalizers.").Add(int64(len(rows)))
	}
	return rows
}

func (s *Service) recordLatest(metric string, v *float64) {
	if s.opts.Metrics == nil || v == nil {
		return
	}
	s.opts.Metrics.Gauge(metrics.WithLabels("vahan_latest_growth_percent", "metric", metric),
		"Most recent defined growth percentage of the last render.").Set(*v)
}

func latest(t domain.GrowthTable) *float64 {
	if v, ok := growth.Latest(t); ok {
		return &v
	}
	return nil
}
