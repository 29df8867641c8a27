package query

import "github.com/WessleyAI/vahan-insights/engine/domain"

// Upstream parameter names.
const (
	KeyFromYear             = "fromYear"
	KeyToYear               = "toYear"
	KeyStateCode            = "stateCode"
	KeyRTOCode              = "rtoCode"
	KeyVehicleClasses       = "vehicleClasses"
	KeyVehicleMakers        = "vehicleMakers"
	KeyVehicleSubCategories = "vehicleSubCategories"
	KeyVehicleEmissions     = "vehicleEmissions"
	KeyVehicleFuels         = "vehicleFuels"
	KeyTimePeriod           = "timePeriod"
	KeyVehicleCategoryGroup = "vehicleCategoryGroup"
	KeyEVType               = "evType"
	KeyVehicleStatus        = "vehicleStatus"
	KeyVehicleOwnerType     = "vehicleOwnerType"
	KeyFitnessCheck         = "fitnessCheck"
	KeyVehicleType          = "vehicleType"
	KeyCalendarType         = "calendarType"
)

// BaseKeys lists every key sent on every call, in wire order. The upstream
// API rejects requests that omit any of them, even when empty.
var BaseKeys = []string{
	KeyFromYear, KeyToYear, KeyStateCode, KeyRTOCode,
	KeyVehicleClasses, KeyVehicleMakers, KeyVehicleSubCategories,
	KeyVehicleEmissions, KeyVehicleFuels, KeyTimePeriod,
	KeyVehicleCategoryGroup, KeyEVType, KeyVehicleStatus,
	KeyVehicleOwnerType, KeyFitnessCheck, KeyVehicleType,
}

// BuildParams maps filters onto the full upstream key set and merges extra on
// top. Unset string filters are sent as "". Filters are passed through
// without validation.
func BuildParams(f domain.Filters, extra Params) Params {
	p := Of(
		KeyFromYear, f.FromYear,
		KeyToYear, f.ToYear,
		KeyStateCode, f.StateCode,
		KeyRTOCode, f.RTOCode,
		KeyVehicleClasses, f.VehicleClasses,
		KeyVehicleMakers, f.VehicleMakers,
		KeyVehicleSubCategories, "",
		KeyVehicleEmissions, "",
		KeyVehicleFuels, "",
		KeyTimePeriod, f.TimePeriod,
		KeyVehicleCategoryGroup, "",
		KeyEVType, "",
		KeyVehicleStatus, "",
		KeyVehicleOwnerType, "",
		KeyFitnessCheck, f.FitnessCheck,
		KeyVehicleType, f.VehicleType,
	)
	return p.Merge(extra)
}

// WithCalendarType returns p with the duration-table granularity override.
func WithCalendarType(p Params, c domain.CalendarType) Params {
	return p.Set(KeyCalendarType, int(c))
}
