// Package records turns raw weather arrays from the API into a tagged
// union of daily, monthly or yearly records with one common field shape.
package records

import (
	"fmt"
	"time"
)

// Granularity is the time-aggregation level shared by every record in a batch.
type Granularity int

const (
	Unknown Granularity = iota
	Daily
	Monthly
	Yearly
)

func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return "unknown"
	}
}

// ParseGranularity is the inverse of String. Unrecognised names map to Unknown.
func ParseGranularity(s string) Granularity {
	switch s {
	case "daily":
		return Daily
	case "monthly":
		return Monthly
	case "yearly":
		return Yearly
	default:
		return Unknown
	}
}

// Period is the reporting key of a record. Date is only set for daily
// records, Month only for daily and monthly ones.
type Period struct {
	Date  time.Time
	Year  int
	Month int
}

// Label renders the period the way charts and tables show it.
func (p Period) Label(g Granularity) string {
	switch g {
	case Daily:
		return p.Date.Format("2006-01-02")
	case Monthly:
		return fmt.Sprintf("%02d.%d", p.Month, p.Year)
	case Yearly:
		return fmt.Sprintf("%d", p.Year)
	default:
		return ""
	}
}

// Record is the normalised shape every downstream consumer reads.
// Durations keep the unit of the wire field they came from; use Hours
// to convert them for display.
type Record struct {
	Index    int
	Period   Period
	CityName string

	WeatherCode int

	MaxTemperature float64
	MinTemperature float64
	MaxFeelsLike   float64
	MinFeelsLike   float64

	Precipitation      float64
	Rain               float64
	Snow               float64
	Mixed              float64
	PrecipitationHours float64

	Sunrise         string
	Sunset          string
	SunlightSeconds float64
	DaylightSeconds float64

	MaxWindSpeed  float64
	MaxWindGusts  float64
	WindDirection float64

	HasSolar           bool
	SolarRadiation     float64
	Evapotranspiration float64

	// Degraded is set when the element could not be decoded and the
	// record carries zero values only.
	Degraded bool
}

// AverageTemperature is the midpoint of the max and min temperature.
func (r Record) AverageTemperature() float64 {
	return (r.MaxTemperature + r.MinTemperature) / 2
}

// AverageFeelsLike is the midpoint of the feels-like extremes.
func (r Record) AverageFeelsLike() float64 {
	return (r.MaxFeelsLike + r.MinFeelsLike) / 2
}

// Batch is one classified API response.
type Batch struct {
	Granularity Granularity
	Records     []Record
}

func (b Batch) Len() int { return len(b.Records) }

// Empty reports whether the batch carries no records.
func (b Batch) Empty() bool { return len(b.Records) == 0 }
