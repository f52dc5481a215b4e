package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lox/meteopl/internal/api"
	"github.com/lox/meteopl/internal/client"
	"github.com/lox/meteopl/internal/store"
)

const dailyBody = `[
	{"date":"2024-06-15","weatherCode":61,"maxTemperature":24,"minTemperature":12,"rain":3,"precipitationSum":3,
	 "sunrise":"2024-06-15T02:30:00","sunset":"2024-06-15T19:01:00","maxWindSpeed":20,"dominantWindDirection":225},
	{"date":"2024-06-16","weatherCode":3,"maxTemperature":26,"minTemperature":14,
	 "sunrise":"2024-06-16T02:30:00","sunset":"2024-06-16T19:02:00","maxWindSpeed":11,"dominantWindDirection":90}
]`

type harness struct {
	srv   *api.Server
	store *store.Store
	ui    *api.UIState

	mu    sync.Mutex
	paths []string
}

func (h *harness) record(path string) {
	h.mu.Lock()
	h.paths = append(h.paths, path)
	h.mu.Unlock()
}

func newHarness(t *testing.T, upstream http.HandlerFunc) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{ui: api.NewUIState()}

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.record(r.URL.Path)
		upstream(w, r)
	}))
	t.Cleanup(up.Close)

	st, err := store.Open(":memory:", logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(); err != nil {
		t.Fatal(err)
	}
	h.store = st

	srv, err := api.NewServer(api.Config{
		Client:  client.New(client.Config{BaseURL: up.URL + "/api", Logger: logger}),
		Store:   st,
		UIState: h.ui,
		Logger:  logger,
		GinMode: "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	h.srv = srv
	return h
}

func (h *harness) do(t *testing.T, method, target, session string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if session != "" {
		req.Header.Set(api.SessionHeader, session)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

type pageJSON struct {
	Page        string     `json:"page"`
	Generation  uint64     `json:"generation"`
	Granularity string     `json:"granularity"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	Charts      []struct {
		Kind string `json:"kind"`
	} `json:"charts"`
	Panels []struct {
		City struct {
			Name string `json:"name"`
		} `json:"city"`
		Rows []struct {
			Metric string `json:"metric"`
			Delta  string `json:"delta"`
		} `json:"rows"`
	} `json:"panels"`
	Sentences []string `json:"sentences"`
	Narrative string   `json:"narrative"`
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) pageJSON {
	t.Helper()
	var p pageJSON
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode page: %v\n%s", err, w.Body.String())
	}
	return p
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v\n%s", err, w.Body.String())
	}
	return body.Error
}

func serveDaily(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, dailyBody)
}

func TestHealthEndpoint(t *testing.T) {
	h := newHarness(t, serveDaily)

	w := h.do(t, "GET", "/health", "", nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status"`) {
		t.Error("expected status field in JSON response")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, serveDaily)
	h.do(t, "GET", "/api/daily?cityId=1&startDate=2024-06-15&endDate=2024-06-16", "", nil)

	w := h.do(t, "GET", "/metrics", "", nil)
	if w.Code != 200 || !strings.Contains(w.Body.String(), "meteopl_api_calls_total") {
		t.Errorf("metrics = %d", w.Code)
	}
}

func TestDailyPage(t *testing.T) {
	h := newHarness(t, serveDaily)

	w := h.do(t, "GET", "/api/daily?cityId=1&startDate=2024-06-15&endDate=2024-06-16", "tab", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	p := decodePage(t, w)
	if p.Page != "daily" || p.Generation != 1 || p.Granularity != "daily" {
		t.Errorf("page = %+v", p)
	}
	if len(p.Rows) != 2 || p.Columns[0] != "Data" || p.Rows[0][0] != "15.06.2024" {
		t.Errorf("table = %q / %q", p.Columns, p.Rows)
	}

	kinds := map[string]bool{}
	for _, c := range p.Charts {
		kinds[c.Kind] = true
	}
	for _, want := range []string{"temperature", "precipitation-pie", "wind-radar", "sun-times", "weather-codes"} {
		if !kinds[want] {
			t.Errorf("missing chart %q in %v", want, kinds)
		}
	}
	if kinds["cities"] {
		t.Error("cities chart belongs to the Poland page")
	}

	last := h.do(t, "GET", "/api/pages/daily/last", "tab", nil)
	if last.Code != 200 || decodePage(t, last).Generation != 1 {
		t.Errorf("last = %d %s", last.Code, last.Body.String())
	}
	if other := h.do(t, "GET", "/api/pages/daily/last", "other-tab", nil); other.Code != http.StatusNotFound {
		t.Errorf("other session last = %d, want 404", other.Code)
	}
}

func TestMonthlyPage_SkipsDailyOnlyCharts(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"year":2024,"month":1,"maxTemperature":2,"minTemperature":-5}]`)
	})

	w := h.do(t, "GET", "/api/monthly?cityId=1&startMonth=1&startYear=2024&endMonth=3&endYear=2024", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	for _, c := range decodePage(t, w).Charts {
		if c.Kind == "sun-times" {
			t.Error("sun-times chart is daily only")
		}
	}
}

func TestBadInput(t *testing.T) {
	h := newHarness(t, serveDaily)

	tests := []struct {
		name, target string
	}{
		{"missing city", "/api/daily?startDate=2024-06-15&endDate=2024-06-16"},
		{"end before start", "/api/daily?cityId=1&startDate=2024-06-16&endDate=2024-06-15"},
		{"bad date", "/api/daily?cityId=1&startDate=15.06.2024&endDate=2024-06-16"},
		{"month out of range", "/api/monthly?cityId=1&startMonth=13&startYear=2024&endMonth=1&endYear=2025"},
		{"month range reversed", "/api/monthly?cityId=1&startMonth=5&startYear=2024&endMonth=1&endYear=2024"},
		{"same city twice", "/api/compare?cityId1=3&cityId2=3&date=2024-06-15"},
		{"export format", "/api/export/daily?format=pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, "GET", tt.target, "", nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
	if len(h.paths) != 0 {
		t.Errorf("upstream called for invalid input: %v", h.paths)
	}
}

func TestUpstreamFailures(t *testing.T) {
	tests := []struct {
		name     string
		upstream http.HandlerFunc
		status   int
		message  string
	}{
		{
			name: "server error",
			upstream: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"message":"database down"}`)
			},
			status:  http.StatusBadGateway,
			message: "Błąd: database down",
		},
		{
			name: "unrecognized shape",
			upstream: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `[{"cityName":"Kraków"}]`)
			},
			status: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.upstream)
			w := h.do(t, "GET", "/api/daily?cityId=1&startDate=2024-06-15&endDate=2024-06-16", "", nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			msg := errorMessage(t, w)
			if !strings.HasPrefix(msg, "Błąd: ") {
				t.Errorf("error = %q", msg)
			}
			if tt.message != "" && msg != tt.message {
				t.Errorf("error = %q, want %q", msg, tt.message)
			}
			if last := h.do(t, "GET", "/api/pages/daily/last", "", nil); last.Code != http.StatusNotFound {
				t.Errorf("failed submission must not publish a result, got %d", last.Code)
			}
		})
	}
}

func TestComparePage_Sequential(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/compare":
			_, _ = io.WriteString(w, `{"city1":{"id":1,"name":"Kraków"},"city2":{"id":2,"name":"Gdańsk"},
				"comparison":{"maxTemperature":{"largerCityName":"Gdańsk","absoluteDifference":4}}}`)
		case "/api/daily-weather":
			if r.URL.Query().Get("cityId") == "1" {
				_, _ = io.WriteString(w, `[{"date":"2024-06-15","maxTemperature":20,"minTemperature":10}]`)
				return
			}
			_, _ = io.WriteString(w, `[{"date":"2024-06-15","maxTemperature":24,"minTemperature":12}]`)
		default:
			http.NotFound(w, r)
		}
	})

	w := h.do(t, "GET", "/api/compare?cityId1=1&cityId2=2&date=2024-06-15", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if diff := cmp.Diff([]string{"/api/compare", "/api/daily-weather", "/api/daily-weather"}, h.paths); diff != "" {
		t.Errorf("upstream order (-want +got):\n%s", diff)
	}

	p := decodePage(t, w)
	if len(p.Panels) != 2 || p.Panels[0].City.Name != "Kraków" || p.Panels[1].City.Name != "Gdańsk" {
		t.Fatalf("panels = %+v", p.Panels)
	}
	for _, r := range p.Panels[1].Rows {
		if r.Metric == "maxTemperature" && r.Delta != "+4°C" {
			t.Errorf("Gdańsk maxTemperature delta = %q, want +4°C", r.Delta)
		}
	}
}

func TestComparePage_StopsAfterFailedComparison(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	w := h.do(t, "GET", "/api/compare?cityId1=1&cityId2=2&date=2024-06-15", "", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d", w.Code)
	}
	if diff := cmp.Diff([]string{"/api/compare"}, h.paths); diff != "" {
		t.Errorf("daily records must not be requested after a failed comparison (-want +got):\n%s", diff)
	}
}

func TestStalePageResultIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cityId") == "1" {
			close(started)
			<-r.Context().Done()
			return
		}
		serveDaily(w, r)
	})

	slow := make(chan *httptest.ResponseRecorder)
	go func() {
		req := httptest.NewRequest("GET", "/api/daily?cityId=1&startDate=2024-06-15&endDate=2024-06-16", nil)
		req.Header.Set(api.SessionHeader, "tab")
		w := httptest.NewRecorder()
		h.srv.Handler().ServeHTTP(w, req)
		slow <- w
	}()
	<-started

	fast := h.do(t, "GET", "/api/daily?cityId=2&startDate=2024-06-15&endDate=2024-06-16", "tab", nil)
	if fast.Code != 200 {
		t.Fatalf("newer request status = %d: %s", fast.Code, fast.Body.String())
	}

	old := <-slow
	if old.Code != http.StatusConflict {
		t.Errorf("stale request status = %d, want 409: %s", old.Code, old.Body.String())
	}

	last := h.do(t, "GET", "/api/pages/daily/last", "tab", nil)
	if got := decodePage(t, last).Generation; got != 2 {
		t.Errorf("last generation = %d, want 2", got)
	}
}

func TestRepeatedResubmissionsKeepUpstreamAvailable(t *testing.T) {
	arrived := make(chan struct{}, 16)
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cityId") == "1" {
			arrived <- struct{}{}
			<-r.Context().Done()
			return
		}
		serveDaily(w, r)
	})

	const superseded = 6
	results := make(chan int, superseded)
	for i := 0; i < superseded; i++ {
		go func() {
			req := httptest.NewRequest("GET", "/api/daily?cityId=1&startDate=2024-06-15&endDate=2024-06-16", nil)
			req.Header.Set(api.SessionHeader, "tab")
			w := httptest.NewRecorder()
			h.srv.Handler().ServeHTTP(w, req)
			results <- w.Code
		}()
		<-arrived
	}

	w := h.do(t, "GET", "/api/daily?cityId=2&startDate=2024-06-15&endDate=2024-06-16", "tab", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status after %d superseded submissions = %d: %s", superseded, w.Code, w.Body.String())
	}
	for i := 0; i < superseded; i++ {
		if code := <-results; code != http.StatusConflict {
			t.Errorf("superseded submission status = %d, want 409", code)
		}
	}

	w = h.do(t, "GET", "/api/daily?cityId=2&startDate=2024-06-15&endDate=2024-06-16", "other", nil)
	if w.Code != http.StatusOK {
		t.Errorf("other session status = %d: %s", w.Code, w.Body.String())
	}
}

func TestStatsPage(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"rain":{"sum":42.5}}`)
	})

	w := h.do(t, "GET", "/api/stats?cityId=1&startDate=2024-06-01&endDate=2024-06-30", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	p := decodePage(t, w)
	if len(p.Sentences) != 1 || !strings.HasPrefix(p.Sentences[0], "Deszcz:") {
		t.Errorf("sentences = %q", p.Sentences)
	}
	if p.Narrative != p.Sentences[0] {
		t.Errorf("narrative = %q", p.Narrative)
	}
}

func TestPolandPage(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"cityName":"Kraków","date":"2024-06-15","maxTemperature":24,"minTemperature":12,"dominantWindDirection":270},
			{"cityName":"Gdańsk","date":"2024-06-15","maxTemperature":19,"minTemperature":11,"dominantWindDirection":0}
		]`)
	})

	w := h.do(t, "GET", "/api/poland?date=2024-06-15", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	p := decodePage(t, w)
	if p.Columns[0] != "Miasto" || p.Rows[1][0] != "Gdańsk" {
		t.Errorf("table = %q / %q", p.Columns, p.Rows)
	}
	if len(p.Charts) == 0 || p.Charts[0].Kind != "cities" {
		t.Errorf("charts = %+v", p.Charts)
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t, serveDaily)

	if w := h.do(t, "GET", "/api/export/daily?format=csv", "tab", nil); w.Code != http.StatusNotFound {
		t.Errorf("export before any result = %d, want 404", w.Code)
	}

	h.do(t, "GET", "/api/daily?cityId=1&startDate=2024-06-15&endDate=2024-06-16", "tab", nil)

	csvResp := h.do(t, "GET", "/api/export/daily?format=csv", "tab", nil)
	if csvResp.Code != 200 {
		t.Fatalf("csv status = %d: %s", csvResp.Code, csvResp.Body.String())
	}
	if ct := csvResp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(csvResp.Body.Bytes(), []byte("\ufeff")) {
		t.Error("csv should start with a BOM")
	}
	if csvResp.Header().Get("X-Export-Rows") != "2" {
		t.Errorf("rows header = %q", csvResp.Header().Get("X-Export-Rows"))
	}
	if !strings.Contains(csvResp.Header().Get("Content-Disposition"), "meteopl-daily-") {
		t.Errorf("Content-Disposition = %q", csvResp.Header().Get("Content-Disposition"))
	}

	pngResp := h.do(t, "GET", "/api/export/daily?format=png&chart=wind-radar", "tab", nil)
	if pngResp.Code != 200 {
		t.Fatalf("png status = %d: %s", pngResp.Code, pngResp.Body.String())
	}
	if _, err := png.Decode(pngResp.Body); err != nil {
		t.Errorf("decode png: %v", err)
	}

	if w := h.do(t, "GET", "/api/export/daily?format=png&chart=cities", "tab", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing chart = %d, want 404", w.Code)
	}
	if w := h.do(t, "GET", "/api/export/daily?format=csv&upload=true", "tab", nil); w.Code != http.StatusBadRequest {
		t.Errorf("upload without FTP = %d, want 400", w.Code)
	}

	exports, err := h.store.ListExports(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(exports) != 2 {
		t.Fatalf("logged exports = %d, want 2", len(exports))
	}
	if exports[0].ID != pngResp.Header().Get("X-Export-ID") && exports[1].ID != pngResp.Header().Get("X-Export-ID") {
		t.Error("png export not logged under its id")
	}

	list := h.do(t, "GET", "/api/exports", "", nil)
	if list.Code != 200 || !strings.Contains(list.Body.String(), csvResp.Header().Get("X-Export-ID")) {
		t.Errorf("exports list = %d %s", list.Code, list.Body.String())
	}
}

func TestUIState(t *testing.T) {
	h := newHarness(t, serveDaily)

	w := h.do(t, "PUT", "/api/ui-state", "", strings.NewReader(`{"sidebarCollapsed":true}`))
	if w.Code != 200 {
		t.Fatalf("PUT status = %d: %s", w.Code, w.Body.String())
	}
	if !h.ui.SidebarCollapsed() {
		t.Error("injected UI state should be updated")
	}

	got := h.do(t, "GET", "/api/ui-state", "", nil)
	if strings.TrimSpace(got.Body.String()) != `{"sidebarCollapsed":true}` {
		t.Errorf("GET = %s", got.Body.String())
	}

	if w := h.do(t, "PUT", "/api/ui-state", "", strings.NewReader(`{}`)); w.Code != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", w.Code)
	}
}
