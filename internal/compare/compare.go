// Package compare derives signed, human-readable differences between two
// cities for a single day.
package compare

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/lox/meteopl/internal/models"
	"github.com/lox/meteopl/internal/records"
)

// ErrNoRecordForDate is returned when a city's daily batch has no record
// for the comparison date.
var ErrNoRecordForDate = errors.New("no record for comparison date")

// Side identifies one of the two compared cities.
type Side int

const (
	NoSide Side = iota
	City1
	City2
)

// Other returns the opposite side.
func (s Side) Other() Side {
	switch s {
	case City1:
		return City2
	case City2:
		return City1
	default:
		return NoSide
	}
}

// Delta is the larger/smaller/equal classification of one metric.
type Delta struct {
	Larger    Side
	Magnitude float64
	Neutral   bool
}

// SignFor returns +1 when side is the larger city, -1 when it is the
// smaller one and 0 for a neutral delta.
func (d Delta) SignFor(side Side) int {
	if d.Neutral {
		return 0
	}
	if d.Larger == side {
		return 1
	}
	return -1
}

// Names carries the display names the server uses in its comparison map.
type Names struct {
	City1 string
	City2 string
}

// CompareMetric classifies one metric. A server comparison entry is trusted
// when present; otherwise the delta is derived from the two values with a
// plain numeric comparison. Wind direction goes through the same linear
// comparison even though it is a circular quantity.
func CompareMetric(metric string, v1, v2 float64, names Names, server models.ComparisonMap) Delta {
	if entry, ok := server[metric]; ok {
		if entry.Difference == 0 {
			return Delta{Neutral: true}
		}
		d := Delta{Magnitude: math.Abs(entry.Difference)}
		switch entry.Larger {
		case names.City1:
			d.Larger = City1
		case names.City2:
			d.Larger = City2
		default:
			slog.Warn("comparison names an unknown city, using values", "metric", metric, "larger", entry.Larger)
			d.Larger = numericLarger(v1, v2)
		}
		return d
	}

	diff := math.Abs(v1 - v2)
	if diff == 0 {
		return Delta{Neutral: true}
	}
	return Delta{Larger: numericLarger(v1, v2), Magnitude: diff}
}

func numericLarger(v1, v2 float64) Side {
	if v1 > v2 {
		return City1
	}
	return City2
}

// DisplayDate formats a date the way comparison records are matched.
func DisplayDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FindByDate returns the record whose date renders to the same DD.MM.YYYY
// string as date. Time components on either side are irrelevant.
func FindByDate(batch records.Batch, date time.Time) (records.Record, bool) {
	want := DisplayDate(date)
	for _, r := range batch.Records {
		if r.Degraded {
			continue
		}
		if DisplayDate(r.Period.Date) == want {
			return r, true
		}
	}
	return records.Record{}, false
}

// Row is one metric line of a city panel.
type Row struct {
	Metric  string `json:"metric"`
	Label   string `json:"label"`
	Value   string `json:"value"`
	Delta   string `json:"delta"`
	Sign    int    `json:"sign"`
	Neutral bool   `json:"neutral"`
}

// Panel is everything rendered for one city of the comparison page.
type Panel struct {
	City               models.City `json:"city"`
	Date               string      `json:"date"`
	AverageTemperature string      `json:"averageTemperature"`
	WindCardinal       string      `json:"windCardinal"`
	Rows               []Row       `json:"rows"`
}

// BuildPanels pairs the comparison result with both cities' daily records
// and renders the two antisymmetric panels.
func BuildPanels(result models.ComparisonResult, date time.Time, daily1, daily2 records.Batch) (Panel, Panel, error) {
	r1, ok := FindByDate(daily1, date)
	if !ok {
		return Panel{}, Panel{}, fmt.Errorf("%s %s: %w", result.City1.Name, DisplayDate(date), ErrNoRecordForDate)
	}
	r2, ok := FindByDate(daily2, date)
	if !ok {
		return Panel{}, Panel{}, fmt.Errorf("%s %s: %w", result.City2.Name, DisplayDate(date), ErrNoRecordForDate)
	}

	names := Names{City1: result.City1.Name, City2: result.City2.Name}
	p1 := newPanel(result.City1, date, r1)
	p2 := newPanel(result.City2, date, r2)

	for _, m := range Metrics {
		v1, err1 := m.Value(r1)
		v2, err2 := m.Value(r2)
		if err := errors.Join(err1, err2); err != nil {
			slog.Warn("skipping comparison row", "metric", m.Name, "error", err)
			continue
		}
		d := CompareMetric(m.Name, v1, v2, names, result.Comparison)
		p1.Rows = append(p1.Rows, row(m, v1, d, City1))
		p2.Rows = append(p2.Rows, row(m, v2, d, City2))
	}
	return p1, p2, nil
}

func newPanel(city models.City, date time.Time, r records.Record) Panel {
	return Panel{
		City:               city,
		Date:               DisplayDate(date),
		AverageTemperature: fmt.Sprintf("%.1f°C", r.AverageTemperature()),
		WindCardinal:       FormatValue(mustLookup("dominantWindDirection"), r.WindDirection),
	}
}

func row(m Metric, v float64, d Delta, side Side) Row {
	d = m.displayed(d)
	return Row{
		Metric:  m.Name,
		Label:   m.Label,
		Value:   FormatValue(m, v),
		Delta:   FormatDelta(m, d, side),
		Sign:    d.SignFor(side),
		Neutral: d.Neutral,
	}
}

func mustLookup(name string) Metric {
	m, ok := Lookup(name)
	if !ok {
		panic("compare: unknown metric " + name)
	}
	return m
}
