package models

import (
	"encoding/json"
)

type Voivodeship struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Capital           string  `json:"capital"`
	Area              float64 `json:"area"`
	Population        int64   `json:"population"`
	PopulationDensity float64 `json:"populationDensity"`
	NumberOfCounties  int     `json:"numberOfCounties"`
	NumberOfCommunes  int     `json:"numberOfCommunes"`
}

// City is read-only reference data. The extended attributes are only
// populated by the comparison endpoint.
type City struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Population        int64        `json:"population,omitempty"`
	Area              float64      `json:"area,omitempty"`
	PopulationDensity float64      `json:"populationDensity,omitempty"`
	Latitude          float64      `json:"latitude,omitempty"`
	Longitude         float64      `json:"longitude,omitempty"`
	Voivodeship       *Voivodeship `json:"voivodeship,omitempty"`
}

// MetricComparison is one entry of the server-computed comparison map.
type MetricComparison struct {
	Larger     string  `json:"larger"`
	Difference float64 `json:"difference"`
}

// UnmarshalJSON accepts both the short {larger, difference} form and the
// long {largerCityName, absoluteDifference} form.
func (m *MetricComparison) UnmarshalJSON(b []byte) error {
	var raw struct {
		Larger             *string  `json:"larger"`
		Difference         *float64 `json:"difference"`
		LargerCityName     *string  `json:"largerCityName"`
		AbsoluteDifference *float64 `json:"absoluteDifference"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = MetricComparison{}
	switch {
	case raw.Larger != nil:
		m.Larger = *raw.Larger
	case raw.LargerCityName != nil:
		m.Larger = *raw.LargerCityName
	}
	switch {
	case raw.Difference != nil:
		m.Difference = *raw.Difference
	case raw.AbsoluteDifference != nil:
		m.Difference = *raw.AbsoluteDifference
	}
	return nil
}

type ComparisonMap map[string]MetricComparison

type ComparisonResult struct {
	City1      City          `json:"city1"`
	City2      City          `json:"city2"`
	Date       string        `json:"date"`
	Comparison ComparisonMap `json:"comparison"`
}

type CorrelationResult struct {
	Correlation float64   `json:"correlation"`
	Column1     string    `json:"column1"`
	Column2     string    `json:"column2"`
	Values1     []float64 `json:"values1"`
	Values2     []float64 `json:"values2"`
}

type Columns struct {
	Columns []string `json:"columns"`
}

type ClimatePrediction struct {
	Year               int     `json:"year"`
	City               string  `json:"city"`
	MinTemperature     float64 `json:"minTemperature"`
	MaxTemperature     float64 `json:"maxTemperature"`
	AverageTemperature float64 `json:"averageTemperature"`
	Amplitude          float64 `json:"amplitude"`
	GrowingSeasonDays  int     `json:"growingSeasonDays"`
}

// MetricStats holds whichever aggregates the server produced for a metric.
// Continuous metrics get average/median/stdDev, categorical ones get mode,
// time-of-day ones get earliest/latest.
type MetricStats struct {
	Average   *float64 `json:"average,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Median    *float64 `json:"median,omitempty"`
	StdDev    *float64 `json:"stdDev,omitempty"`
	Sum       *float64 `json:"sum,omitempty"`
	Mode      *float64 `json:"mode,omitempty"`
	Earliest  *string  `json:"earliest,omitempty"`
	Latest    *string  `json:"latest,omitempty"`
	Longest   *float64 `json:"longest,omitempty"`
	Total     *float64 `json:"total,omitempty"`
	DryDays   *int     `json:"dryDays,omitempty"`
	RainyDays *int     `json:"rainyDays,omitempty"`
}

// WeatherStats is created per query and never cached.
type WeatherStats map[string]MetricStats
