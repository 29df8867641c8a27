package domain

// CalendarType selects the aggregation granularity of the duration-wise
// registration table.
type CalendarType int

const (
	CalendarYearly    CalendarType = 1
	CalendarQuarterly CalendarType = 2
	CalendarMonthly   CalendarType = 3
)

func (c CalendarType) String() string {
	switch c {
	case CalendarYearly:
		return "yearly"
	case CalendarQuarterly:
		return "quarterly"
	case CalendarMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// MinYear is the earliest year the upstream dashboard exposes.
const MinYear = 2012

// DefaultFromYear is the floor for the default "from" year.
const DefaultFromYear = 2017

// ValidTimePeriods and ValidFitnessChecks are the opaque enum values the
// upstream API accepts.
var (
	ValidTimePeriods   = map[int]bool{0: true, 1: true, 2: true}
	ValidFitnessChecks = map[int]bool{0: true, 1: true}
)
