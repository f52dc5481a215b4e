// Package series adapts normalised weather records into the small datasets
// each chart on the dashboard draws.
package series

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/lox/meteopl/internal/records"
	"github.com/lox/meteopl/internal/timefmt"
)

// Kind names a chart.
type Kind string

const (
	Temperature        Kind = "temperature"
	FeelsLike          Kind = "feels-like"
	Precipitation      Kind = "precipitation"
	PrecipitationPie   Kind = "precipitation-pie"
	WindSpeed          Kind = "wind-speed"
	WindRadar          Kind = "wind-radar"
	Sunlight           Kind = "sunlight"
	SunTimes           Kind = "sun-times"
	Solar              Kind = "solar"
	Evapotranspiration Kind = "evapotranspiration"
	WeatherCodes       Kind = "weather-codes"
	Cities             Kind = "cities"
)

// Kinds lists every chart kind ToSeries understands.
var Kinds = []Kind{
	Temperature, FeelsLike, Precipitation, PrecipitationPie, WindSpeed, WindRadar,
	Sunlight, SunTimes, Solar, Evapotranspiration, WeatherCodes, Cities,
}

var (
	ErrUnknownKind = errors.New("unknown chart kind")
	// ErrUnsupported is returned when a chart cannot be drawn for the
	// batch granularity, e.g. sun times for monthly data.
	ErrUnsupported = errors.New("chart not available for granularity")
)

// Point is one {x, y} sample of a line or bar series.
type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named list of points sharing a unit.
type Series struct {
	Name   string  `json:"name"`
	Unit   string  `json:"unit,omitempty"`
	Points []Point `json:"points"`
}

// Slice is one {name, value} entry of a pie or radar chart.
type Slice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// XY is a numeric pair of a scatter chart.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dataset is what one chart renders. Exactly one of Series, Slices or
// Scatter is populated.
type Dataset struct {
	Kind        Kind                `json:"kind"`
	Granularity records.Granularity `json:"-"`
	Title       string              `json:"title"`
	Series      []Series            `json:"series,omitempty"`
	Slices      []Slice             `json:"slices,omitempty"`
	Scatter     []XY                `json:"scatter,omitempty"`
}

// ToSeries builds the dataset for one chart kind. Degraded records are
// skipped; a record whose timestamps cannot be parsed loses only the
// affected point.
func ToSeries(batch records.Batch, kind Kind) (Dataset, error) {
	if !slices.Contains(Kinds, kind) {
		return Dataset{}, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	ds := Dataset{Kind: kind, Granularity: batch.Granularity, Title: title(kind)}
	if batch.Empty() {
		return ds, nil
	}

	g := batch.Granularity
	switch kind {
	case Temperature:
		ds.Series = lines(batch, "°C",
			line{"Średnia", func(r records.Record) float64 { return r.AverageTemperature() }},
			line{"Maksymalna", func(r records.Record) float64 { return r.MaxTemperature }},
			line{"Minimalna", func(r records.Record) float64 { return r.MinTemperature }},
		)
	case FeelsLike:
		ds.Series = lines(batch, "°C",
			line{"Średnia odczuwalna", func(r records.Record) float64 { return r.AverageFeelsLike() }},
			line{"Maksymalna odczuwalna", func(r records.Record) float64 { return r.MaxFeelsLike }},
			line{"Minimalna odczuwalna", func(r records.Record) float64 { return r.MinFeelsLike }},
		)
	case Precipitation:
		ds.Series = lines(batch, "mm",
			line{"Suma", func(r records.Record) float64 { return r.Precipitation }},
			line{"Deszcz", func(r records.Record) float64 { return r.Rain }},
			line{"Śnieg", func(r records.Record) float64 { return r.Snow }},
			line{"Mieszane", func(r records.Record) float64 { return r.Mixed }},
		)
	case PrecipitationPie:
		ds.Slices = precipitationPie(batch)
	case WindSpeed:
		ds.Series = lines(batch, "km/h",
			line{"Prędkość wiatru", func(r records.Record) float64 { return r.MaxWindSpeed }},
			line{"Porywy wiatru", func(r records.Record) float64 { return r.MaxWindGusts }},
		)
	case WindRadar:
		ds.Slices = windRadar(batch)
	case Sunlight:
		secondsField, daylightField := "sunlightDuration", "daylightDuration"
		if g != records.Daily {
			secondsField, daylightField = "dailySunshine", "dailyLightHours"
		}
		ds.Series = lines(batch, "h",
			line{"Nasłonecznienie", func(r records.Record) float64 { return records.Hours(secondsField, r.SunlightSeconds) }},
			line{"Długość dnia", func(r records.Record) float64 { return records.Hours(daylightField, r.DaylightSeconds) }},
		)
	case SunTimes:
		if g != records.Daily {
			return Dataset{}, fmt.Errorf("%s for %s data: %w", kind, g, ErrUnsupported)
		}
		ds.Series = sunTimes(batch)
	case Solar, Evapotranspiration:
		if g == records.Yearly {
			return Dataset{}, fmt.Errorf("%s for %s data: %w", kind, g, ErrUnsupported)
		}
		ds.Series = solar(batch, kind)
	case WeatherCodes:
		ds.Slices = weatherCodes(batch)
	case Cities:
		ds.Series = cities(batch)
	default:
		return Dataset{}, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	return ds, nil
}

type line struct {
	name  string
	value func(records.Record) float64
}

func lines(batch records.Batch, unit string, defs ...line) []Series {
	out := make([]Series, len(defs))
	for i, d := range defs {
		out[i] = Series{Name: d.name, Unit: unit, Points: make([]Point, 0, batch.Len())}
	}
	for _, r := range batch.Records {
		if r.Degraded {
			continue
		}
		x := r.Period.Label(batch.Granularity)
		for i, d := range defs {
			out[i].Points = append(out[i].Points, Point{X: x, Y: d.value(r)})
		}
	}
	return out
}

// precipitationPie sums rain and snow across the whole batch. A category
// whose total is exactly zero is left out.
func precipitationPie(batch records.Batch) []Slice {
	var rain, snow float64
	for _, r := range batch.Records {
		rain += r.Rain
		snow += r.Snow
	}
	out := make([]Slice, 0, 2)
	if rain != 0 {
		out = append(out, Slice{Name: "Deszcz", Value: rain})
	}
	if snow != 0 {
		out = append(out, Slice{Name: "Śnieg", Value: snow})
	}
	return out
}

// Sector returns the radar sector index of an angle: 0 (N) for
// angle >= 337.5 or angle < 22.5, otherwise the sector i whose window
// [45i-22.5, 45i+22.5) contains it.
func Sector(angle float64) int {
	if angle >= 337.5 || angle < 22.5 {
		return 0
	}
	for i := 1; i < 8; i++ {
		lower := float64(i)*45 - 22.5
		if angle >= lower && angle < lower+45 {
			return i
		}
	}
	return 0
}

func windRadar(batch records.Batch) []Slice {
	names := timefmt.Cardinals()
	out := make([]Slice, len(names))
	for i, n := range names {
		out[i] = Slice{Name: n}
	}
	for _, r := range batch.Records {
		if r.Degraded {
			continue
		}
		out[Sector(r.WindDirection)].Value++
	}
	return out
}

func sunTimes(batch records.Batch) []Series {
	rise := Series{Name: "Wschód słońca", Unit: "min"}
	set := Series{Name: "Zachód słońca", Unit: "min"}
	day := Series{Name: "Dzień", Unit: "h"}
	night := Series{Name: "Noc", Unit: "h"}

	for _, r := range batch.Records {
		if r.Degraded {
			continue
		}
		x := r.Period.Label(records.Daily)
		if m, err := timefmt.MinutesSinceMidnight(r.Sunrise, r.Period.Date); err == nil {
			rise.Points = append(rise.Points, Point{X: x, Y: float64(m)})
		} else {
			slog.Warn("skipping sunrise point", "date", x, "error", err)
		}
		if m, err := timefmt.MinutesSinceMidnight(r.Sunset, r.Period.Date); err == nil {
			set.Points = append(set.Points, Point{X: x, Y: float64(m)})
		} else {
			slog.Warn("skipping sunset point", "date", x, "error", err)
		}

		split, err := timefmt.DaylightSplit(r.Sunrise, r.Sunset)
		if err != nil {
			slog.Warn("daylight split fallback", "date", x, "error", err)
		}
		day.Points = append(day.Points, Point{X: x, Y: split.DaylightHours})
		night.Points = append(night.Points, Point{X: x, Y: split.NightHours})
	}
	return []Series{rise, set, day, night}
}

func solar(batch records.Batch, kind Kind) []Series {
	s := Series{Name: "Promieniowanie słoneczne", Unit: "MJ/m²"}
	if kind == Evapotranspiration {
		s = Series{Name: "Ewapotranspiracja", Unit: "mm"}
	}
	for _, r := range batch.Records {
		if r.Degraded || !r.HasSolar {
			continue
		}
		v := r.SolarRadiation
		if kind == Evapotranspiration {
			v = r.Evapotranspiration
		}
		s.Points = append(s.Points, Point{X: r.Period.Label(batch.Granularity), Y: v})
	}
	return []Series{s}
}

func weatherCodes(batch records.Batch) []Slice {
	counts := make(map[int]float64)
	var order []int
	for _, r := range batch.Records {
		if r.Degraded {
			continue
		}
		if _, seen := counts[r.WeatherCode]; !seen {
			order = append(order, r.WeatherCode)
		}
		counts[r.WeatherCode]++
	}
	out := make([]Slice, 0, len(order))
	for _, code := range order {
		out = append(out, Slice{Name: WeatherCodeLabel(code), Value: counts[code]})
	}
	return out
}

func cities(batch records.Batch) []Series {
	temp := Series{Name: "Temperatura średnia", Unit: "°C"}
	precip := Series{Name: "Suma opadów", Unit: "mm"}
	wind := Series{Name: "Prędkość wiatru", Unit: "km/h"}
	for _, r := range batch.Records {
		if r.Degraded {
			continue
		}
		temp.Points = append(temp.Points, Point{X: r.CityName, Y: r.AverageTemperature()})
		precip.Points = append(precip.Points, Point{X: r.CityName, Y: r.Precipitation})
		wind.Points = append(wind.Points, Point{X: r.CityName, Y: r.MaxWindSpeed})
	}
	return []Series{temp, precip, wind}
}

func title(kind Kind) string {
	switch kind {
	case Temperature:
		return "Temperatura"
	case FeelsLike:
		return "Temperatura odczuwalna"
	case Precipitation:
		return "Opady"
	case PrecipitationPie:
		return "Rodzaje opadów"
	case WindSpeed:
		return "Wiatr"
	case WindRadar:
		return "Kierunek wiatru"
	case Sunlight:
		return "Nasłonecznienie"
	case SunTimes:
		return "Wschody i zachody słońca"
	case Solar:
		return "Promieniowanie słoneczne"
	case Evapotranspiration:
		return "Ewapotranspiracja"
	case WeatherCodes:
		return "Warunki pogodowe"
	case Cities:
		return "Pogoda w Polsce"
	default:
		return string(kind)
	}
}
