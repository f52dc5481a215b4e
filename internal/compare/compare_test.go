package compare

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lox/meteopl/internal/models"
	"github.com/lox/meteopl/internal/records"
)

func mustMetric(t *testing.T, name string) Metric {
	t.Helper()
	m, ok := Lookup(name)
	if !ok {
		t.Fatalf("metric %q not defined", name)
	}
	return m
}

func TestCompareMetric_EqualValuesAreNeutral(t *testing.T) {
	names := Names{City1: "Kraków", City2: "Gdańsk"}
	server := models.ComparisonMap{
		"rain": {Larger: "Gdańsk", Difference: 3.5},
	}

	d := CompareMetric("maxTemperature", 12.4, 12.4, names, server)
	if !d.Neutral {
		t.Fatalf("equal values: Neutral = false, want true")
	}
	m := mustMetric(t, "maxTemperature")
	for _, side := range []Side{City1, City2} {
		if got := FormatDelta(m, d, side); got != "0.0°C" {
			t.Errorf("FormatDelta(side %d) = %q, want %q", side, got, "0.0°C")
		}
		if got := d.SignFor(side); got != 0 {
			t.Errorf("SignFor(%d) = %d, want 0", side, got)
		}
	}

	zero := CompareMetric("rain", 1, 1, names, models.ComparisonMap{"rain": {Larger: "Kraków", Difference: 0}})
	if !zero.Neutral {
		t.Errorf("server difference 0: Neutral = false, want true")
	}
	if got := FormatDelta(mustMetric(t, "rain"), zero, City1); got != "0.00 mm" {
		t.Errorf("neutral rain delta = %q, want %q", got, "0.00 mm")
	}
}

func TestFormatDelta_RoundsToZero(t *testing.T) {
	tests := []struct {
		metric    string
		magnitude float64
		want      string
	}{
		{"maxTemperature", 0.04, "0.0°C"},
		{"maxTemperature", 0.06, "+0.1°C"},
		{"rain", 0.004, "0.00 mm"},
		{"sunrise", 0.4, "0 min"},
		{"daylightDuration", 59, "0h 0min"},
		{"precipitationDuration", 0.01, "0h 0min"},
	}

	for _, tt := range tests {
		d := Delta{Larger: City1, Magnitude: tt.magnitude}
		if got := FormatDelta(mustMetric(t, tt.metric), d, City1); got != tt.want {
			t.Errorf("FormatDelta(%s, %v) = %q, want %q", tt.metric, tt.magnitude, got, tt.want)
		}
	}

	r := row(mustMetric(t, "maxTemperature"), 12.44, Delta{Larger: City2, Magnitude: 0.04}, City1)
	if r.Sign != 0 || !r.Neutral || r.Delta != "0.0°C" {
		t.Errorf("row = %+v, want a neutral 0.0°C delta", r)
	}
}

func TestCompareMetric_Antisymmetric(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		v1, v2 float64
		server models.ComparisonMap
	}{
		{name: "local path", metric: "maxWindSpeed", v1: 31.2, v2: 18.7},
		{name: "local path wind direction", metric: "dominantWindDirection", v1: 350, v2: 10},
		{
			name:   "server path",
			metric: "precipitationSum",
			v1:     1.1, v2: 2.35,
			server: models.ComparisonMap{"precipitationSum": {Larger: "Gdańsk", Difference: 1.25}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forward := CompareMetric(tt.metric, tt.v1, tt.v2, Names{City1: "Kraków", City2: "Gdańsk"}, tt.server)
			swapped := CompareMetric(tt.metric, tt.v2, tt.v1, Names{City1: "Gdańsk", City2: "Kraków"}, tt.server)

			if forward.Neutral || swapped.Neutral {
				t.Fatalf("unexpected neutral delta: %+v / %+v", forward, swapped)
			}
			if forward.Magnitude != swapped.Magnitude {
				t.Errorf("magnitude %v != %v after swap", forward.Magnitude, swapped.Magnitude)
			}
			if forward.SignFor(City1) != -swapped.SignFor(City1) {
				t.Errorf("sign not flipped: %d vs %d", forward.SignFor(City1), swapped.SignFor(City1))
			}
			if forward.SignFor(City1) != -forward.SignFor(City2) {
				t.Errorf("panels not antisymmetric: %d vs %d", forward.SignFor(City1), forward.SignFor(City2))
			}
		})
	}
}

func TestCompareMetric_WindDirectionIsLinear(t *testing.T) {
	d := CompareMetric("dominantWindDirection", 350, 10, Names{City1: "A", City2: "B"}, nil)
	if d.Larger != City1 || d.Magnitude != 340 {
		t.Errorf("got %+v, want City1 larger by 340", d)
	}
	if got := FormatDelta(mustMetric(t, "dominantWindDirection"), d, City2); got != "-340°" {
		t.Errorf("FormatDelta = %q, want %q", got, "-340°")
	}
}

func TestCompareMetric_UnknownServerCityFallsBackToValues(t *testing.T) {
	server := models.ComparisonMap{"snow": {Larger: "Warszawa", Difference: 2}}
	d := CompareMetric("snow", 1, 3, Names{City1: "A", City2: "B"}, server)
	if d.Larger != City2 {
		t.Errorf("Larger = %d, want City2", d.Larger)
	}
	if d.Magnitude != 2 {
		t.Errorf("Magnitude = %v, want server difference 2", d.Magnitude)
	}
}

func TestFormatDelta(t *testing.T) {
	tests := []struct {
		metric string
		delta  Delta
		side   Side
		want   string
	}{
		{"maxTemperature", Delta{Larger: City1, Magnitude: 4}, City1, "+4°C"},
		{"maxTemperature", Delta{Larger: City1, Magnitude: 2.345}, City2, "-2.3°C"},
		{"rain", Delta{Larger: City2, Magnitude: 1.25}, City2, "+1.25 mm"},
		{"maxWindSpeed", Delta{Larger: City2, Magnitude: 3.06}, City1, "-3.1 km/h"},
		{"sunrise", Delta{Larger: City1, Magnitude: 12}, City1, "+12 min"},
		{"sunrise", Delta{Neutral: true}, City1, "0 min"},
		{"daylightDuration", Delta{Larger: City2, Magnitude: 3661}, City1, "-1h 1min"},
		{"precipitationDuration", Delta{Larger: City1, Magnitude: 1.5}, City1, "+1h 30min"},
		{"precipitationDuration", Delta{Neutral: true}, City2, "0h 0min"},
	}

	for _, tt := range tests {
		t.Run(tt.metric+"/"+tt.want, func(t *testing.T) {
			if got := FormatDelta(mustMetric(t, tt.metric), tt.delta, tt.side); got != tt.want {
				t.Errorf("FormatDelta = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindByDate_IgnoresTimeComponent(t *testing.T) {
	batch, err := records.ClassifyJSON([]byte(`[
		{"date":"2024-06-14T00:00:00","maxTemperature":1},
		{"date":"2024-06-15T00:00:00","maxTemperature":2}
	]`))
	if err != nil {
		t.Fatal(err)
	}

	r, ok := FindByDate(batch, time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC))
	if !ok {
		t.Fatal("record for 15.06.2024 not found")
	}
	if r.MaxTemperature != 2 {
		t.Errorf("matched record MaxTemperature = %v, want 2", r.MaxTemperature)
	}

	if _, ok := FindByDate(batch, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)); ok {
		t.Error("expected no match for 16.06.2024")
	}
}

func TestBuildPanels_EndToEnd(t *testing.T) {
	daily1, err := records.ClassifyJSON([]byte(`[{"date":"2024-06-15","maxTemperature":10,"minTemperature":0}]`))
	if err != nil {
		t.Fatal(err)
	}
	daily2, err := records.ClassifyJSON([]byte(`[{"date":"2024-06-15","maxTemperature":14,"minTemperature":4}]`))
	if err != nil {
		t.Fatal(err)
	}
	result := models.ComparisonResult{
		City1: models.City{ID: 1, Name: "A"},
		City2: models.City{ID: 2, Name: "B"},
		Comparison: models.ComparisonMap{
			"maxTemperature": {Larger: "B", Difference: 4},
		},
	}

	p1, p2, err := BuildPanels(result, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), daily1, daily2)
	if err != nil {
		t.Fatalf("BuildPanels: %v", err)
	}

	if p1.AverageTemperature != "5.0°C" {
		t.Errorf("A average = %q, want 5.0°C", p1.AverageTemperature)
	}
	if p2.AverageTemperature != "9.0°C" {
		t.Errorf("B average = %q, want 9.0°C", p2.AverageTemperature)
	}

	row1 := findRow(t, p1, "maxTemperature")
	row2 := findRow(t, p2, "maxTemperature")
	want1 := Row{Metric: "maxTemperature", Label: "Temperatura maksymalna", Value: "10.0°C", Delta: "-4°C", Sign: -1}
	want2 := Row{Metric: "maxTemperature", Label: "Temperatura maksymalna", Value: "14.0°C", Delta: "+4°C", Sign: 1}
	if diff := cmp.Diff(want1, row1); diff != "" {
		t.Errorf("city A row mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want2, row2); diff != "" {
		t.Errorf("city B row mismatch (-want +got):\n%s", diff)
	}

	if len(p1.Rows) != len(p2.Rows) {
		t.Fatalf("panels have %d and %d rows", len(p1.Rows), len(p2.Rows))
	}
	for i := range p1.Rows {
		if p1.Rows[i].Sign != -p2.Rows[i].Sign {
			t.Errorf("row %s: signs %d and %d are not opposite", p1.Rows[i].Metric, p1.Rows[i].Sign, p2.Rows[i].Sign)
		}
	}

	for _, r := range p1.Rows {
		if r.Metric == "sunrise" || r.Metric == "sunset" {
			t.Errorf("row %s should be skipped when the timestamp is missing", r.Metric)
		}
	}
}

func TestBuildPanels_MissingDate(t *testing.T) {
	daily, err := records.ClassifyJSON([]byte(`[{"date":"2024-06-15","maxTemperature":10}]`))
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = BuildPanels(models.ComparisonResult{}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), daily, daily)
	if !errors.Is(err, ErrNoRecordForDate) {
		t.Errorf("err = %v, want ErrNoRecordForDate", err)
	}
}

func findRow(t *testing.T, p Panel, metric string) Row {
	t.Helper()
	for _, r := range p.Rows {
		if r.Metric == metric {
			return r
		}
	}
	t.Fatalf("panel %s has no %s row", p.City.Name, metric)
	return Row{}
}
