package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lox/meteopl/internal/client"
	"github.com/lox/meteopl/internal/compare"
	"github.com/lox/meteopl/internal/export"
	"github.com/lox/meteopl/internal/records"
	"github.com/lox/meteopl/internal/series"
)

// errorPrefix matches the inline message pages show on failure.
const errorPrefix = "Błąd: "

var errStale = errors.New("superseded by a newer request")

// statusFor maps failures to responses. Upstream and transport errors
// are 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errStale), errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.Is(err, client.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, records.ErrUnrecognizedShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, series.ErrUnsupported), errors.Is(err, series.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, compare.ErrNoRecordForDate), errors.Is(err, export.ErrNothingToExport):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Warn("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": errorPrefix + msg})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorPrefix + err.Error()})
}
