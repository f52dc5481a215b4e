package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"
)

// ErrUnrecognizedShape is returned when the first record of a non-empty
// array matches none of the known granularities.
var ErrUnrecognizedShape = errors.New("unrecognized record shape")

type dailyWire struct {
	Date                  string   `json:"date"`
	CityName              string   `json:"cityName"`
	WeatherCode           int      `json:"weatherCode"`
	MaxTemperature        float64  `json:"maxTemperature"`
	MinTemperature        float64  `json:"minTemperature"`
	MaxFeelTemperature    float64  `json:"maxFeelTemperature"`
	MinFeelTemperature    float64  `json:"minFeelTemperature"`
	PrecipitationSum      float64  `json:"precipitationSum"`
	Rain                  float64  `json:"rain"`
	Snow                  float64  `json:"snow"`
	MixedPrecipitation    float64  `json:"mixedPrecipitation"`
	PrecipitationDuration float64  `json:"precipitationDuration"`
	Sunrise               string   `json:"sunrise"`
	Sunset                string   `json:"sunset"`
	SunlightDuration      float64  `json:"sunlightDuration"`
	DaylightDuration      float64  `json:"daylightDuration"`
	MaxWindSpeed          float64  `json:"maxWindSpeed"`
	MaxWindGusts          float64  `json:"maxWindGusts"`
	DominantWindDirection float64  `json:"dominantWindDirection"`
	ShortwaveRadiationSum *float64 `json:"shortwaveRadiationSum"`
	Evapotranspiration    *float64 `json:"evapotranspiration"`
}

// aggregateWire covers monthly and yearly records; yearly responses never
// carry the solar fields.
type aggregateWire struct {
	Year                    int      `json:"year"`
	Month                   int      `json:"month"`
	CityName                string   `json:"cityName"`
	WeatherCode             int      `json:"weatherCode"`
	MaxTemperature          float64  `json:"maxTemperature"`
	MinTemperature          float64  `json:"minTemperature"`
	MaxFeelsLikeTemperature float64  `json:"maxFeelsLikeTemperature"`
	MinFeelsLikeTemperature float64  `json:"minFeelsLikeTemperature"`
	PrecipitationSum        float64  `json:"precipitationSum"`
	Rain                    float64  `json:"rain"`
	Snow                    float64  `json:"snow"`
	MixedPrecipitation      float64  `json:"mixedPrecipitation"`
	PrecipitationTime       float64  `json:"precipitationTime"`
	DailySunshine           float64  `json:"dailySunshine"`
	DailyLightHours         float64  `json:"dailyLightHours"`
	MaxWindSpeed            float64  `json:"maxWindSpeed"`
	MaxWindGusts            float64  `json:"maxWindGusts"`
	DominantWindDirection   float64  `json:"dominantWindDirection"`
	ShortwaveRadiationSum   *float64 `json:"shortwaveRadiationSum"`
	Evapotranspiration      *float64 `json:"evapotranspiration"`
}

// Detect returns the granularity of a single record. The probe order is
// date, then month, then year; a daily record may carry neither of the
// latter but checking date first keeps the rule unambiguous.
func Detect(raw json.RawMessage) Granularity {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Unknown
	}
	switch {
	case doc.Get("date").Exists():
		return Daily
	case doc.Get("month").Exists():
		return Monthly
	case doc.Get("year").Exists():
		return Yearly
	default:
		return Unknown
	}
}

// Classify tags the array by the granularity of its first element and maps
// every element onto Record. An element that fails to decode becomes a
// degraded zero record so the rest of the batch survives.
func Classify(raw []json.RawMessage) (Batch, error) {
	if len(raw) == 0 {
		return Batch{Granularity: Unknown, Records: []Record{}}, nil
	}

	g := Detect(raw[0])
	if g == Unknown {
		return Batch{}, fmt.Errorf("classify %d records: %w", len(raw), ErrUnrecognizedShape)
	}

	out := Batch{Granularity: g, Records: make([]Record, 0, len(raw))}
	for i, item := range raw {
		rec, err := decode(g, item)
		if err != nil {
			slog.Warn("degrading undecodable record", "granularity", g, "index", i, "error", err)
			rec = Record{Degraded: true}
		}
		rec.Index = i
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// ClassifyJSON splits a JSON array body and classifies it.
func ClassifyJSON(body []byte) (Batch, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Batch{}, fmt.Errorf("decode record array: %w", err)
	}
	return Classify(raw)
}

func decode(g Granularity, raw json.RawMessage) (Record, error) {
	switch g {
	case Daily:
		var w dailyWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return Record{}, err
		}
		return w.record()
	case Monthly, Yearly:
		var w aggregateWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return Record{}, err
		}
		return w.record(g), nil
	default:
		return Record{}, ErrUnrecognizedShape
	}
}

func (w dailyWire) record() (Record, error) {
	date, err := ParseDate(w.Date)
	if err != nil {
		return Record{}, err
	}
	r := Record{
		Period:             Period{Date: date, Year: date.Year(), Month: int(date.Month())},
		CityName:           w.CityName,
		WeatherCode:        w.WeatherCode,
		MaxTemperature:     w.MaxTemperature,
		MinTemperature:     w.MinTemperature,
		MaxFeelsLike:       w.MaxFeelTemperature,
		MinFeelsLike:       w.MinFeelTemperature,
		Precipitation:      w.PrecipitationSum,
		Rain:               w.Rain,
		Snow:               w.Snow,
		Mixed:              w.MixedPrecipitation,
		PrecipitationHours: Hours("precipitationDuration", w.PrecipitationDuration),
		Sunrise:            w.Sunrise,
		Sunset:             w.Sunset,
		SunlightSeconds:    w.SunlightDuration,
		DaylightSeconds:    w.DaylightDuration,
		MaxWindSpeed:       w.MaxWindSpeed,
		MaxWindGusts:       w.MaxWindGusts,
		WindDirection:      w.DominantWindDirection,
	}
	if w.ShortwaveRadiationSum != nil || w.Evapotranspiration != nil {
		r.HasSolar = true
		r.SolarRadiation = deref(w.ShortwaveRadiationSum)
		r.Evapotranspiration = deref(w.Evapotranspiration)
	}
	return r, nil
}

func (w aggregateWire) record(g Granularity) Record {
	r := Record{
		Period:             Period{Year: w.Year},
		CityName:           w.CityName,
		WeatherCode:        w.WeatherCode,
		MaxTemperature:     w.MaxTemperature,
		MinTemperature:     w.MinTemperature,
		MaxFeelsLike:       w.MaxFeelsLikeTemperature,
		MinFeelsLike:       w.MinFeelsLikeTemperature,
		Precipitation:      w.PrecipitationSum,
		Rain:               w.Rain,
		Snow:               w.Snow,
		Mixed:              w.MixedPrecipitation,
		PrecipitationHours: Hours("precipitationTime", w.PrecipitationTime),
		SunlightSeconds:    w.DailySunshine,
		DaylightSeconds:    w.DailyLightHours,
		MaxWindSpeed:       w.MaxWindSpeed,
		MaxWindGusts:       w.MaxWindGusts,
		WindDirection:      w.DominantWindDirection,
	}
	if g == Monthly {
		r.Period.Month = w.Month
		if w.ShortwaveRadiationSum != nil || w.Evapotranspiration != nil {
			r.HasSolar = true
			r.SolarRadiation = deref(w.ShortwaveRadiationSum)
			r.Evapotranspiration = deref(w.Evapotranspiration)
		}
	}
	return r
}

// ParseDate reads the calendar date of an API date field. The time part,
// if any, is ignored.
func ParseDate(s string) (time.Time, error) {
	if len(s) < 10 {
		return time.Time{}, fmt.Errorf("parse date %q: too short", s)
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
