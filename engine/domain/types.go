// Package domain defines the core types, constants, and validation shared by
// the vahan-insights pipeline: request filters, normalized table rows, and
// growth tables.
package domain

import "time"

// Filters is the per-render request configuration built from the user
// controls. It is constructed once and passed by value; nothing mutates it
// after construction.
type Filters struct {
	FromYear       int    `json:"from_year"`
	ToYear         int    `json:"to_year"`
	StateCode      string `json:"state_code"`
	RTOCode        string `json:"rto_code"`
	VehicleClasses string `json:"vehicle_classes"`
	VehicleMakers  string `json:"vehicle_makers"`
	TimePeriod     int    `json:"time_period"`
	FitnessCheck   int    `json:"fitness_check"`
	VehicleType    string `json:"vehicle_type"`
}

// DefaultFilters returns the filters the dashboard starts with: the previous
// year (never earlier than DefaultFromYear) through the current year, RTO
// "0" (state aggregate), everything else unfiltered.
func DefaultFilters(now time.Time) Filters {
	from := now.Year() - 1
	if from < DefaultFromYear {
		from = DefaultFromYear
	}
	return Filters{
		FromYear: from,
		ToYear:   now.Year(),
		RTOCode:  "0",
	}
}

// LabelValue is one row of a distribution table (bar/pie chart input).
type LabelValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// TrendPoint is one row of a registration trend. Period is the raw upstream
// identifier ("2023", "Jan-2024", ...); it is parsed into a date only when
// growth metrics or the line chart need one.
type TrendPoint struct {
	Period string  `json:"date"`
	Value  float64 `json:"value"`
}

// GrowthRow is one resampled bucket with its percentage change against the
// comparison bucket. Change is nil when there is no prior bucket or the prior
// value is zero.
type GrowthRow struct {
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	Change *float64  `json:"change"`
}

// GrowthTable is a resampled series with one change column named by Metric.
type GrowthTable struct {
	Metric string      `json:"metric"`
	Rows   []GrowthRow `json:"rows"`
}

// Growth metric column names.
const (
	MetricYoY = "YoY%"
	MetricQoQ = "QoQ%"
)

// RevenuePoint is one (year, period) cell of the multi-series revenue trend.
// Period is the 1-based position within that year's array.
type RevenuePoint struct {
	Year   string  `json:"year"`
	Period int     `json:"period"`
	Value  float64 `json:"value"`
}
