package domain

import (
	"strconv"
	"time"
)

// ValidateFilters checks user-supplied filters the way the dashboard
// controls constrain them. The query builder never validates; callers that
// accept raw user input run this first.
func ValidateFilters(f Filters, now time.Time) error {
	maxYear := now.Year()
	if f.FromYear < MinYear || f.FromYear > maxYear {
		return NewValidationError("from_year", strconv.Itoa(f.FromYear), ErrYearOutOfRange)
	}
	if f.ToYear < MinYear || f.ToYear > maxYear {
		return NewValidationError("to_year", strconv.Itoa(f.ToYear), ErrYearOutOfRange)
	}
	if f.FromYear > f.ToYear {
		return NewValidationError("to_year", strconv.Itoa(f.ToYear), ErrYearOrder)
	}
	if !ValidTimePeriods[f.TimePeriod] {
		return NewValidationError("time_period", strconv.Itoa(f.TimePeriod), ErrInvalidFilter)
	}
	if !ValidFitnessChecks[f.FitnessCheck] {
		return NewValidationError("fitness_check", strconv.Itoa(f.FitnessCheck), ErrInvalidFilter)
	}
	return nil
}
