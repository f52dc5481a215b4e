package compare

import (
	"fmt"
	"math"
	"strconv"

	"github.com/lox/meteopl/internal/records"
	"github.com/lox/meteopl/internal/timefmt"
)

// Kind selects how a metric value and its delta are rendered.
type Kind int

const (
	// Decimal values are rounded to the metric precision and suffixed.
	Decimal Kind = iota
	// ClockMinutes values are minutes since midnight; deltas are whole minutes.
	ClockMinutes
	// DurationSeconds values are rendered as "Hh Mmin".
	DurationSeconds
	// DurationHours values are hours rendered as "Hh Mmin".
	DurationHours
)

// Metric is one comparable quantity of a daily record. Name matches the key
// the comparison endpoint uses.
type Metric struct {
	Name      string
	Label     string
	Unit      string
	Precision int
	Kind      Kind
	Value     func(records.Record) (float64, error)
}

func field(f func(records.Record) float64) func(records.Record) (float64, error) {
	return func(r records.Record) (float64, error) { return f(r), nil }
}

func sunMinutes(f func(records.Record) string) func(records.Record) (float64, error) {
	return func(r records.Record) (float64, error) {
		m, err := timefmt.MinutesSinceMidnight(f(r), r.Period.Date)
		return float64(m), err
	}
}

// Metrics lists the rows of a city comparison panel, in display order.
var Metrics = []Metric{
	{Name: "maxTemperature", Label: "Temperatura maksymalna", Unit: "°C", Precision: 1,
		Value: field(func(r records.Record) float64 { return r.MaxTemperature })},
	{Name: "minTemperature", Label: "Temperatura minimalna", Unit: "°C", Precision: 1,
		Value: field(func(r records.Record) float64 { return r.MinTemperature })},
	{Name: "maxFeelTemperature", Label: "Odczuwalna maksymalna", Unit: "°C", Precision: 1,
		Value: field(func(r records.Record) float64 { return r.MaxFeelsLike })},
	{Name: "minFeelTemperature", Label: "Odczuwalna minimalna", Unit: "°C", Precision: 1,
		Value: field(func(r records.Record) float64 { return r.MinFeelsLike })},
	{Name: "precipitationSum", Label: "Suma opadów", Unit: " mm", Precision: 2,
		Value: field(func(r records.Record) float64 { return r.Precipitation })},
	{Name: "rain", Label: "Deszcz", Unit: " mm", Precision: 2,
		Value: field(func(r records.Record) float64 { return r.Rain })},
	{Name: "snow", Label: "Śnieg", Unit: " mm", Precision: 2,
		Value: field(func(r records.Record) float64 { return r.Snow })},
	{Name: "precipitationDuration", Label: "Czas opadów", Kind: DurationHours,
		Value: field(func(r records.Record) float64 { return r.PrecipitationHours })},
	{Name: "maxWindSpeed", Label: "Prędkość wiatru", Unit: " km/h", Precision: 1,
		Value: field(func(r records.Record) float64 { return r.MaxWindSpeed })},
	{Name: "maxWindGusts", Label: "Porywy wiatru", Unit: " km/h", Precision: 1,
		Value: field(func(r records.Record) float64 { return r.MaxWindGusts })},
	{Name: "dominantWindDirection", Label: "Kierunek wiatru", Unit: "°", Precision: 0,
		Value: field(func(r records.Record) float64 { return r.WindDirection })},
	{Name: "sunrise", Label: "Wschód słońca", Unit: " min", Kind: ClockMinutes,
		Value: sunMinutes(func(r records.Record) string { return r.Sunrise })},
	{Name: "sunset", Label: "Zachód słońca", Unit: " min", Kind: ClockMinutes,
		Value: sunMinutes(func(r records.Record) string { return r.Sunset })},
	{Name: "sunlightDuration", Label: "Nasłonecznienie", Kind: DurationSeconds,
		Value: field(func(r records.Record) float64 { return r.SunlightSeconds })},
	{Name: "daylightDuration", Label: "Długość dnia", Kind: DurationSeconds,
		Value: field(func(r records.Record) float64 { return r.DaylightSeconds })},
	{Name: "shortwaveRadiationSum", Label: "Promieniowanie słoneczne", Unit: " MJ/m²", Precision: 2,
		Value: field(func(r records.Record) float64 { return r.SolarRadiation })},
	{Name: "evapotranspiration", Label: "Ewapotranspiracja", Unit: " mm", Precision: 2,
		Value: field(func(r records.Record) float64 { return r.Evapotranspiration })},
}

// Lookup returns the metric definition by wire name.
func Lookup(name string) (Metric, bool) {
	for _, m := range Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// FormatValue renders an absolute metric value for a panel row.
func FormatValue(m Metric, v float64) string {
	switch m.Kind {
	case ClockMinutes:
		return timefmt.FormatTime(int(v))
	case DurationSeconds:
		return timefmt.SecondsToHoursMinutes(v)
	case DurationHours:
		return timefmt.HoursToHoursMinutes(v)
	}
	if m.Name == "dominantWindDirection" {
		return fmt.Sprintf("%.0f° (%s)", v, timefmt.DegreesToCardinal(v))
	}
	return strconv.FormatFloat(v, 'f', m.Precision, 64) + m.Unit
}

// FormatDelta renders the delta as seen from one side. A neutral delta is a
// zero with the metric's full precision ("0.0°C"); otherwise the magnitude
// is rounded to the precision without trailing zeros ("+4°C", "-1.25 mm").
// A magnitude that rounds away to zero renders as a neutral delta.
func FormatDelta(m Metric, d Delta, side Side) string {
	d = m.displayed(d)

	sign := ""
	switch d.SignFor(side) {
	case 1:
		sign = "+"
	case -1:
		sign = "-"
	}

	switch m.Kind {
	case ClockMinutes:
		if d.Neutral {
			return "0 min"
		}
		return fmt.Sprintf("%s%d min", sign, int(math.Round(d.Magnitude)))
	case DurationSeconds:
		if d.Neutral {
			return timefmt.SecondsToHoursMinutes(0)
		}
		return sign + timefmt.SecondsToHoursMinutes(d.Magnitude)
	case DurationHours:
		if d.Neutral {
			return timefmt.HoursToHoursMinutes(0)
		}
		return sign + timefmt.HoursToHoursMinutes(d.Magnitude)
	}

	if d.Neutral {
		return strconv.FormatFloat(0, 'f', m.Precision, 64) + m.Unit
	}
	return sign + strconv.FormatFloat(roundTo(d.Magnitude, m.Precision), 'f', -1, 64) + m.Unit
}

// displayed returns d as neutral when its magnitude vanishes at the
// metric's display precision.
func (m Metric) displayed(d Delta) Delta {
	if !d.Neutral && roundsToZero(m, d.Magnitude) {
		return Delta{Neutral: true}
	}
	return d
}

func roundsToZero(m Metric, magnitude float64) bool {
	switch m.Kind {
	case ClockMinutes:
		return math.Round(magnitude) == 0
	case DurationSeconds:
		return magnitude < 60
	case DurationHours:
		return magnitude*3600 < 60
	}
	return roundTo(magnitude, m.Precision) == 0
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}
