// Package export renders the data behind a dashboard page as CSV or as a
// PNG chart, and ships the result to an FTP server.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/lox/meteopl/internal/records"
	"github.com/lox/meteopl/internal/timefmt"
)

// ErrNothingToExport is returned for empty or unclassified batches.
var ErrNothingToExport = errors.New("nothing to export")

const utf8BOM = "\ufeff"

// CSVOptions controls the dialect of the written file.
type CSVOptions struct {
	Delimiter rune
	BOM       bool
}

// DefaultCSVOptions writes a comma separated file with a BOM so that
// spreadsheet applications pick up the Polish characters.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ',', BOM: true}
}

type column struct {
	header string
	value  func(records.Record) string
}

func num(prec int, f func(records.Record) float64) func(records.Record) string {
	return func(r records.Record) string { return strconv.FormatFloat(f(r), 'f', prec, 64) }
}

func sunTime(f func(records.Record) string, header string) column {
	return column{header: header, value: func(r records.Record) string {
		s, err := timefmt.SunDisplayTime(f(r), r.Period.Date)
		if err != nil {
			slog.Warn("blank sun time in export", "column", header, "date", r.Period.Label(records.Daily), "error", err)
			return ""
		}
		return s
	}}
}

var (
	cityColumn = column{"Miasto", func(r records.Record) string { return r.CityName }}

	measureColumns = []column{
		{"Kod pogody", func(r records.Record) string { return strconv.Itoa(r.WeatherCode) }},
		{"Temperatura maksymalna (°C)", num(1, func(r records.Record) float64 { return r.MaxTemperature })},
		{"Temperatura minimalna (°C)", num(1, func(r records.Record) float64 { return r.MinTemperature })},
		{"Temperatura odczuwalna maksymalna (°C)", num(1, func(r records.Record) float64 { return r.MaxFeelsLike })},
		{"Temperatura odczuwalna minimalna (°C)", num(1, func(r records.Record) float64 { return r.MinFeelsLike })},
		{"Suma opadów (mm)", num(2, func(r records.Record) float64 { return r.Precipitation })},
		{"Deszcz (mm)", num(2, func(r records.Record) float64 { return r.Rain })},
		{"Śnieg (mm)", num(2, func(r records.Record) float64 { return r.Snow })},
		{"Opady mieszane (mm)", num(2, func(r records.Record) float64 { return r.Mixed })},
		{"Czas opadów", func(r records.Record) string { return timefmt.HoursToHoursMinutes(r.PrecipitationHours) }},
	}

	sunColumns = []column{
		sunTime(func(r records.Record) string { return r.Sunrise }, "Wschód słońca"),
		sunTime(func(r records.Record) string { return r.Sunset }, "Zachód słońca"),
	}

	durationColumns = []column{
		{"Nasłonecznienie", func(r records.Record) string { return timefmt.SecondsToHoursMinutes(r.SunlightSeconds) }},
		{"Długość dnia", func(r records.Record) string { return timefmt.SecondsToHoursMinutes(r.DaylightSeconds) }},
	}

	windColumns = []column{
		{"Maks. prędkość wiatru (km/h)", num(1, func(r records.Record) float64 { return r.MaxWindSpeed })},
		{"Maks. porywy wiatru (km/h)", num(1, func(r records.Record) float64 { return r.MaxWindGusts })},
		{"Dominujący kierunek wiatru", func(r records.Record) string {
			return fmt.Sprintf("%.0f° (%s)", r.WindDirection, timefmt.DegreesToCardinal(r.WindDirection))
		}},
	}

	solarColumns = []column{
		{"Promieniowanie słoneczne (MJ/m²)", num(2, func(r records.Record) float64 { return r.SolarRadiation })},
		{"Ewapotranspiracja (mm)", num(2, func(r records.Record) float64 { return r.Evapotranspiration })},
	}
)

// Columns returns the header row for a granularity. Poland-wide daily
// exports get a leading city column.
func Columns(g records.Granularity, withCity bool) []string {
	cols := columnsFor(g, withCity)
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

func columnsFor(g records.Granularity, withCity bool) []column {
	var cols []column
	if withCity {
		cols = append(cols, cityColumn)
	}
	switch g {
	case records.Daily:
		cols = append(cols, column{"Data", func(r records.Record) string { return r.Period.Date.Format("02.01.2006") }})
	case records.Monthly:
		cols = append(cols,
			column{"Rok", func(r records.Record) string { return strconv.Itoa(r.Period.Year) }},
			column{"Miesiąc", func(r records.Record) string { return strconv.Itoa(r.Period.Month) }},
		)
	case records.Yearly:
		cols = append(cols, column{"Rok", func(r records.Record) string { return strconv.Itoa(r.Period.Year) }})
	default:
		return nil
	}

	cols = append(cols, measureColumns...)
	if g == records.Daily {
		cols = append(cols, sunColumns...)
	}
	cols = append(cols, durationColumns...)
	cols = append(cols, windColumns...)
	if g != records.Yearly {
		cols = append(cols, solarColumns...)
	}
	return cols
}

// Table formats the batch as a header and one row per non-degraded
// record, the same cells WriteCSV produces. It returns nil for empty or
// unclassified batches.
func Table(batch records.Batch) ([]string, [][]string) {
	if batch.Empty() || batch.Granularity == records.Unknown {
		return nil, nil
	}

	withCity := batch.Records[0].CityName != ""
	cols := columnsFor(batch.Granularity, withCity)

	rows := make([][]string, 0, batch.Len())
	for _, r := range batch.Records {
		if r.Degraded {
			continue
		}
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = c.value(r)
		}
		rows = append(rows, row)
	}
	return Columns(batch.Granularity, withCity), rows
}

// WriteCSV writes the header and one row per non-degraded record. It
// returns the number of data rows written.
func WriteCSV(w io.Writer, batch records.Batch, opts CSVOptions) (int, error) {
	header, rows := Table(batch)
	if header == nil {
		return 0, ErrNothingToExport
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	if opts.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return 0, fmt.Errorf("write bom: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = opts.Delimiter
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("write rows: %w", err)
	}
	return len(rows), nil
}
