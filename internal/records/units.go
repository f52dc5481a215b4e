package records

// Unit is the storage unit of a duration field on the wire.
type Unit int

const (
	Seconds Unit = iota + 1
	HoursUnit
)

// DurationUnits is the per-field unit contract. The unit cannot be inferred
// from the value type, so every duration field must be listed here.
var DurationUnits = map[string]Unit{
	"sunlightDuration":      Seconds,
	"daylightDuration":      Seconds,
	"dailySunshine":         Seconds,
	"dailyLightHours":       Seconds,
	"precipitationDuration": HoursUnit,
	"precipitationTime":     HoursUnit,
}

// Hours converts a duration field to hours. Fields already stored in hours
// pass through untouched, as do fields missing from DurationUnits.
func Hours(field string, value float64) float64 {
	if DurationUnits[field] == Seconds {
		return value / 3600
	}
	return value
}
