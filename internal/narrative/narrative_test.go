package narrative

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/meteopl/internal/models"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }
func s(v string) *string   { return &v }

func sampleStats() models.WeatherStats {
	return models.WeatherStats{
		"rain": {Sum: f(42.5), DryDays: i(20), RainyDays: i(11)},
		"maxTemperature": {
			Average: f(21.34), Median: f(21), StdDev: f(2.5), Min: f(15.2), Max: f(29.9),
		},
		"dominantWindDirection": {Mode: f(270)},
		"weatherCode":           {Mode: f(61)},
		"sunrise":               {Earliest: s("2024-06-20T04:14:00"), Latest: s("2024-06-01T04:21:00")},
		"humidity":              {Average: f(70)},
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(sampleStats())
	want := []string{
		"Temperatura maksymalna: średnia 21.3°C, mediana 21.0°C, odchylenie standardowe 2.50, minimum 15.2°C, maksimum 29.9°C.",
		"Deszcz: suma 42.5 mm, dni bez opadów: 20, dni z opadami: 11.",
		"Kierunek wiatru: najczęściej 270° (W).",
		"Warunki pogodowe: najczęściej słaby deszcz.",
		"Wschód słońca: najwcześniej 04:14, najpóźniej 04:21.",
		"humidity: średnia 70.0.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Describe mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribe_SkipsEmptyMetrics(t *testing.T) {
	got := Describe(models.WeatherStats{"snow": {}})
	if len(got) != 0 {
		t.Errorf("Describe = %q, want nothing", got)
	}
}

func TestPlainNarrator(t *testing.T) {
	text, err := Plain{}.Narrate(context.Background(), models.WeatherStats{"snow": {Total: f(3)}})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Śnieg: łącznie 3.0 mm." {
		t.Errorf("Narrate = %q", text)
	}
}

func TestOpenAINarrator(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(body, &req)
		if len(req.Messages) == 2 {
			gotPrompt = req.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Było ciepło i deszczowo.  "}}]}`)
	}))
	defer srv.Close()

	n, err := NewOpenAI("test-key", "", slog.New(slog.NewTextHandler(io.Discard, nil)),
		option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if err != nil {
		t.Fatal(err)
	}

	text, err := n.Narrate(context.Background(), models.WeatherStats{"rain": {Sum: f(1)}})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Było ciepło i deszczowo." {
		t.Errorf("Narrate = %q", text)
	}
	if gotPrompt != "Deszcz: suma 1.0 mm." {
		t.Errorf("prompt = %q", gotPrompt)
	}
}

func TestOpenAINarrator_FallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	n, err := NewOpenAI("test-key", "gpt-4o-mini", slog.New(slog.NewTextHandler(io.Discard, nil)),
		option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if err != nil {
		t.Fatal(err)
	}

	text, err := n.Narrate(context.Background(), models.WeatherStats{"rain": {Sum: f(1)}})
	if err != nil {
		t.Fatalf("Narrate error = %v, want fallback", err)
	}
	if text != "Deszcz: suma 1.0 mm." {
		t.Errorf("Narrate = %q, want deterministic text", text)
	}
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	if _, err := NewOpenAI("", "", nil); err == nil {
		t.Error("expected error without api key")
	}
}
