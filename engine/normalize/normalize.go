package normalize

import (
	"fmt"

	"github.com/WessleyAI/vahan-insights/engine/domain"
)

// ParseError reports a payload the trend normalizer could not turn into rows.
type ParseError struct {
	Endpoint string
	Reason   string
}

func (e *ParseError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("%s: %s", domain.ErrNoTrendRows, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Endpoint, domain.ErrNoTrendRows, e.Reason)
}

func (e *ParseError) Unwrap() error { return domain.ErrNoTrendRows }

// LabelValues normalizes a distribution payload. Parallel arrays are zipped
// and truncated to the shorter length; records are resolved with opts. Rows
// with a null or non-scalar label, or a missing or non-numeric value, are
// dropped. It never fails: an unrecognized shape yields an empty table.
func LabelValues(raw any, opts Options) []domain.LabelValue {
	switch p := SniffDistribution(raw).(type) {
	case ParallelArrays:
		return zip(p)
	case RecordList, WrappedRecordList:
		recs := Records(p)
		out := make([]domain.LabelValue, 0, len(recs))
		for _, rec := range recs {
			label, ok := opts.label(rec)
			if !ok {
				continue
			}
			v, ok := opts.value(rec)
			if !ok {
				continue
			}
			out = append(out, domain.LabelValue{Label: label, Value: v})
		}
		return out
	}
	return []domain.LabelValue{}
}

// TopMakers normalizes the top-makers payload, which names the label under
// one of several keys depending on the deployment.
func TopMakers(raw any) []domain.LabelValue {
	opts := DefaultOptions()
	opts.LabelKeys = []string{"makerName", "manufacturer", "name", "label"}
	return LabelValues(raw, opts)
}

// YearWiseTrend normalizes the registration trend. Only the labels/data shape
// is accepted; labels are kept as raw period identifiers. A payload without
// both arrays, or one that produces no rows, is a *ParseError.
func YearWiseTrend(raw any) ([]domain.TrendPoint, error) {
	p, ok := SniffParallel(raw).(ParallelArrays)
	if !ok {
		return nil, &ParseError{Endpoint: "trend", Reason: "payload has no labels/data arrays"}
	}
	rows := zip(p)
	if len(rows) == 0 {
		return nil, &ParseError{Endpoint: "trend", Reason: "labels/data arrays are empty"}
	}
	out := make([]domain.TrendPoint, len(rows))
	for i, r := range rows {
		out[i] = domain.TrendPoint{Period: r.Label, Value: r.Value}
	}
	return out, nil
}

// DurationWise normalizes the duration-wise registration table. The label is
// yearAsString, or the stringified year when that is empty; the value is
// registeredVehicleCount.
func DurationWise(raw any) []domain.LabelValue {
	recs := Records(SniffRecords(raw))
	out := make([]domain.LabelValue, 0, len(recs))
	for _, rec := range recs {
		label, _ := rec["yearAsString"].(string)
		if label == "" {
			label, _ = toLabel(rec["year"])
		}
		if label == "" {
			continue
		}
		v, ok := toNumber(rec["registeredVehicleCount"])
		if !ok {
			continue
		}
		out = append(out, domain.LabelValue{Label: label, Value: v})
	}
	return out
}

// TopRevenue normalizes the top-5 revenue payload. Only parallel arrays carry
// rows.
func TopRevenue(raw any) []domain.LabelValue {
	if p, ok := SniffParallel(raw).(ParallelArrays); ok {
		return zip(p)
	}
	return []domain.LabelValue{}
}

// RevenueTrend flattens the year-keyed revenue series into (year, period,
// value) rows, years in natural order. Periods are 1-based positions in the
// year's array; null or non-numeric entries are skipped and do not shift the
// periods after them.
func RevenueTrend(raw any) []domain.RevenuePoint {
	p, ok := SniffYearKeyed(raw).(YearKeyedSeries)
	if !ok {
		return []domain.RevenuePoint{}
	}
	var out []domain.RevenuePoint
	for _, year := range p.Years {
		for i, e := range p.Series[year] {
			v, ok := toNumber(e)
			if !ok {
				continue
			}
			out = append(out, domain.RevenuePoint{Year: year, Period: i + 1, Value: v})
		}
	}
	if out == nil {
		return []domain.RevenuePoint{}
	}
	return out
}

func zip(p ParallelArrays) []domain.LabelValue {
	n := min(len(p.Labels), len(p.Data))
	out := make([]domain.LabelValue, 0, n)
	for i := 0; i < n; i++ {
		label, ok := toLabel(p.Labels[i])
		if !ok {
			continue
		}
		v, ok := toNumber(p.Data[i])
		if !ok {
			continue
		}
		out = append(out, domain.LabelValue{Label: label, Value: v})
	}
	return out
}
