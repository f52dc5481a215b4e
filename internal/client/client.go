// Package client talks to the external weather HTTP API. Array responses
// are normalised into records.Batch at this boundary.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/lox/meteopl/internal/htmlutil"
	"github.com/lox/meteopl/internal/httputil"
	"github.com/lox/meteopl/internal/metrics"
	"github.com/lox/meteopl/internal/records"
)

const DefaultBaseURL = "http://localhost:8080/api"

// Endpoint paths relative to the base URL.
const (
	PathCities        = "/cities"
	PathDaily         = "/daily-weather"
	PathMonthly       = "/monthly-weather"
	PathYearly        = "/yearly-weather"
	PathCompare       = "/compare"
	PathCorrelation   = "/correlation"
	PathColumns       = "/weather/columns"
	PathPrediction    = "/temperature-prediction"
	PathStats         = "/stats-data"
	PathPolandWeather = "/poland-weather"
)

const dateLayout = "2006-01-02"

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("weather api circuit open")

// APIError is a non-2xx response from the weather API.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// PayloadRecorder receives every successful raw response body.
type PayloadRecorder interface {
	RecordPayload(ctx context.Context, endpoint, requestURL string, body []byte) error
}

// Config configures a Client. Zero values fall back to the defaults.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	BreakerTimeout time.Duration
	HTTPClient     *http.Client
	Recorder       PayloadRecorder
	Logger         *slog.Logger
}

type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	breaker    *gobreaker.CircuitBreaker
	recorder   PayloadRecorder
	logger     *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httputil.NewClient(cfg.Timeout)
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	logger := cfg.Logger
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weather-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Context cancellation and deadlines are not upstream failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       cfg.HTTPClient,
		maxRetries: cfg.MaxRetries,
		breaker:    cb,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger,
	}
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// Get fetches path with the query and returns the raw body of a 2xx
// response. Only 429, 502, 503 and 504 are retried, and only when
// MaxRetries is positive.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	endpoint := strings.TrimPrefix(path, "/")

	var body []byte
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(fmt.Errorf("fetch %s: %w", endpoint, err))
		}
		start := time.Now()
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, endpoint, u)
		})
		metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

		if err != nil {
			var apiErr *APIError
			switch {
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				metrics.APICallsTotal.WithLabelValues(endpoint, "circuit_open").Inc()
				return backoff.Permanent(fmt.Errorf("%s: %w", endpoint, ErrCircuitOpen))
			case errors.As(err, &apiErr):
				metrics.APICallsTotal.WithLabelValues(endpoint, strconv.Itoa(apiErr.Status)).Inc()
				if apiErr.Retryable() {
					c.logger.Warn("weather api call failed, retrying", "endpoint", endpoint, "status", apiErr.Status)
					return apiErr
				}
				return backoff.Permanent(apiErr)
			default:
				metrics.APICallsTotal.WithLabelValues(endpoint, "error").Inc()
				return backoff.Permanent(fmt.Errorf("fetch %s: %w", endpoint, err))
			}
		}

		r := res.(*response)
		metrics.APICallsTotal.WithLabelValues(endpoint, strconv.Itoa(r.status)).Inc()
		if r.status < 200 || r.status >= 300 {
			return backoff.Permanent(&APIError{
				Endpoint: endpoint,
				Status:   r.status,
				Message:  htmlutil.ErrorMessage(r.contentType, r.body),
			})
		}
		body = r.body
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}

	if c.recorder != nil {
		if err := c.recorder.RecordPayload(ctx, endpoint, u, body); err != nil {
			c.logger.Warn("failed to record payload", "endpoint", endpoint, "error", err)
		}
	}
	return body, nil
}

// do performs one request. Server-side failures are returned as errors so
// the breaker counts them; client errors come back as a response.
func (c *Client) do(ctx context.Context, endpoint, u string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	r := &response{status: resp.StatusCode, contentType: resp.Header.Get("Content-Type"), body: body}
	if r.status == http.StatusTooManyRequests || r.status >= 500 {
		return nil, &APIError{Endpoint: endpoint, Status: r.status, Message: htmlutil.ErrorMessage(r.contentType, body)}
	}
	return r, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", strings.TrimPrefix(path, "/"), err)
	}
	return nil
}

func (c *Client) getBatch(ctx context.Context, path string, query url.Values) (records.Batch, error) {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return records.Batch{}, err
	}
	return Normalize(body)
}

// Normalize classifies a record array body and counts the outcome.
func Normalize(body []byte) (records.Batch, error) {
	batch, err := records.ClassifyJSON(body)
	if err != nil {
		return records.Batch{}, err
	}
	g := batch.Granularity.String()
	degraded := 0
	for _, r := range batch.Records {
		if r.Degraded {
			degraded++
		}
	}
	metrics.RecordsNormalized.WithLabelValues(g).Add(float64(batch.Len()))
	if degraded > 0 {
		metrics.RecordsDegraded.WithLabelValues(g).Add(float64(degraded))
	}
	return batch, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
