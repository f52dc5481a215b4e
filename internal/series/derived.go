package series

import (
	"fmt"
	"strconv"

	"github.com/lox/meteopl/internal/models"
)

const (
	ScatterKind    Kind = "correlation"
	PredictionKind Kind = "prediction"
)

// Scatter pairs the two value columns of a correlation result. Extra values
// in the longer column are ignored.
func Scatter(c models.CorrelationResult) Dataset {
	n := min(len(c.Values1), len(c.Values2))
	ds := Dataset{
		Kind:    ScatterKind,
		Title:   fmt.Sprintf("%s / %s (r = %.2f)", c.Column1, c.Column2, c.Correlation),
		Scatter: make([]XY, 0, n),
	}
	for i := 0; i < n; i++ {
		ds.Scatter = append(ds.Scatter, XY{X: c.Values1[i], Y: c.Values2[i]})
	}
	return ds
}

// Prediction turns climate prediction rows into per-year temperature lines
// and the growing-season estimate.
func Prediction(rows []models.ClimatePrediction) Dataset {
	avg := Series{Name: "Średnia", Unit: "°C"}
	lo := Series{Name: "Minimalna", Unit: "°C"}
	hi := Series{Name: "Maksymalna", Unit: "°C"}
	amp := Series{Name: "Amplituda", Unit: "°C"}
	season := Series{Name: "Okres wegetacyjny", Unit: "dni"}
	for _, r := range rows {
		x := strconv.Itoa(r.Year)
		avg.Points = append(avg.Points, Point{X: x, Y: r.AverageTemperature})
		lo.Points = append(lo.Points, Point{X: x, Y: r.MinTemperature})
		hi.Points = append(hi.Points, Point{X: x, Y: r.MaxTemperature})
		amp.Points = append(amp.Points, Point{X: x, Y: r.Amplitude})
		season.Points = append(season.Points, Point{X: x, Y: float64(r.GrowingSeasonDays)})
	}
	return Dataset{
		Kind:   PredictionKind,
		Title:  "Prognoza klimatyczna",
		Series: []Series{avg, lo, hi, amp, season},
	}
}
