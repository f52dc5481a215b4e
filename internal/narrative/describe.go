// Package narrative turns server-computed weather statistics into Polish
// sentences for the statistics page.
package narrative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lox/meteopl/internal/models"
	"github.com/lox/meteopl/internal/series"
	"github.com/lox/meteopl/internal/timefmt"
)

type metricInfo struct {
	label string
	unit  string
	order int
}

var known = map[string]metricInfo{
	"maxTemperature":        {"Temperatura maksymalna", "°C", 0},
	"minTemperature":        {"Temperatura minimalna", "°C", 1},
	"averageTemperature":    {"Temperatura średnia", "°C", 2},
	"maxFeelTemperature":    {"Odczuwalna maksymalna", "°C", 3},
	"minFeelTemperature":    {"Odczuwalna minimalna", "°C", 4},
	"precipitationSum":      {"Suma opadów", " mm", 5},
	"rain":                  {"Deszcz", " mm", 6},
	"snow":                  {"Śnieg", " mm", 7},
	"precipitationDuration": {"Czas opadów", " h", 8},
	"maxWindSpeed":          {"Prędkość wiatru", " km/h", 9},
	"maxWindGusts":          {"Porywy wiatru", " km/h", 10},
	"dominantWindDirection": {"Kierunek wiatru", "°", 11},
	"weatherCode":           {"Warunki pogodowe", "", 12},
	"sunrise":               {"Wschód słońca", "", 13},
	"sunset":                {"Zachód słońca", "", 14},
	"sunlightDuration":      {"Nasłonecznienie", " h", 15},
	"daylightDuration":      {"Długość dnia", " h", 16},
	"shortwaveRadiationSum": {"Promieniowanie słoneczne", " MJ/m²", 17},
	"evapotranspiration":    {"Ewapotranspiracja", " mm", 18},
}

func info(name string) metricInfo {
	if m, ok := known[name]; ok {
		return m
	}
	return metricInfo{label: name, order: len(known)}
}

// Describe renders one sentence per metric present in stats. Metrics come
// in a fixed order; unknown metric names follow alphabetically and are
// labelled with their key.
func Describe(stats models.WeatherStats) []string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, oj := info(names[i]).order, info(names[j]).order
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})

	out := make([]string, 0, len(names))
	for _, name := range names {
		if s := sentence(name, stats[name]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sentence(name string, s models.MetricStats) string {
	mi := info(name)
	num := func(v float64) string { return fmt.Sprintf("%.1f%s", v, mi.unit) }

	var parts []string
	add := func(label string, v *float64) {
		if v != nil {
			parts = append(parts, label+" "+num(*v))
		}
	}
	add("średnia", s.Average)
	add("mediana", s.Median)
	if s.StdDev != nil {
		parts = append(parts, fmt.Sprintf("odchylenie standardowe %.2f", *s.StdDev))
	}
	add("minimum", s.Min)
	add("maksimum", s.Max)
	add("suma", s.Sum)
	add("łącznie", s.Total)
	add("najdłużej", s.Longest)

	if s.Mode != nil {
		parts = append(parts, "najczęściej "+mode(name, *s.Mode))
	}
	if s.Earliest != nil {
		parts = append(parts, "najwcześniej "+clock(*s.Earliest))
	}
	if s.Latest != nil {
		parts = append(parts, "najpóźniej "+clock(*s.Latest))
	}
	if s.DryDays != nil {
		parts = append(parts, fmt.Sprintf("dni bez opadów: %d", *s.DryDays))
	}
	if s.RainyDays != nil {
		parts = append(parts, fmt.Sprintf("dni z opadami: %d", *s.RainyDays))
	}

	if len(parts) == 0 {
		return ""
	}
	return mi.label + ": " + strings.Join(parts, ", ") + "."
}

func mode(name string, v float64) string {
	switch name {
	case "dominantWindDirection":
		return fmt.Sprintf("%.0f° (%s)", v, timefmt.DegreesToCardinal(v))
	case "weatherCode":
		return strings.ToLower(series.WeatherCodeLabel(int(v)))
	default:
		return fmt.Sprintf("%g", v)
	}
}

// clock shows a timestamp as HH:MM when it parses, verbatim otherwise.
func clock(ts string) string {
	t, err := timefmt.ParseLocal(ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04")
}
