package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lox/meteopl/internal/export"
	"github.com/lox/meteopl/internal/metrics"
	"github.com/lox/meteopl/internal/store"
)

// handleExport renders the page's last published result. It never fetches
// anew, so the file always matches what the page shows.
func (s *Server) handleExport(c *gin.Context) {
	page := c.Param("page")

	var q exportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	format := export.CSV
	if q.Format != "" {
		f, err := export.ParseFormat(q.Format)
		if err != nil {
			badRequest(c, err)
			return
		}
		format = f
	}

	res, ok := s.guard.Last(page, session(c))
	if !ok {
		s.writeError(c, export.ErrNothingToExport)
		return
	}

	var buf bytes.Buffer
	rows := 0
	switch format {
	case export.CSV:
		n, err := export.WriteCSV(&buf, res.batch, s.csv)
		if err != nil {
			s.writeError(c, err)
			return
		}
		rows = n
	case export.PNG:
		ds, ok := res.Chart(q.Chart)
		if !ok {
			s.writeError(c, fmt.Errorf("chart %q: %w", q.Chart, export.ErrNothingToExport))
			return
		}
		if err := export.RenderPNG(&buf, ds, s.png); err != nil {
			s.writeError(c, err)
			return
		}
	}

	rec := &store.Export{
		ID:          uuid.NewString(),
		Page:        page,
		Format:      string(format),
		Granularity: res.Granularity,
		Rows:        rows,
		SizeBytes:   int64(buf.Len()),
		CreatedAt:   time.Now().UTC(),
	}
	name := export.Filename(page, format, rec.CreatedAt)

	if q.Upload {
		if s.uploader == nil {
			badRequest(c, fmt.Errorf("upload not configured"))
			return
		}
		if err := s.uploader.Upload(c.Request.Context(), name, bytes.NewReader(buf.Bytes())); err != nil {
			s.logger.Error("export upload failed", "file", name, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": errorPrefix + err.Error()})
			return
		}
		rec.Destination = name
		if d, ok := s.uploader.(interface{ Destination(string) string }); ok {
			rec.Destination = d.Destination(name)
		}
	}

	s.recordExport(c, rec)

	if q.Upload {
		c.JSON(http.StatusOK, gin.H{"id": rec.ID, "file": name, "destination": rec.Destination})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("X-Export-ID", rec.ID)
	c.Header("X-Export-Rows", strconv.Itoa(rows))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) recordExport(c *gin.Context, rec *store.Export) {
	metrics.ExportsTotal.WithLabelValues(rec.Page, rec.Format).Inc()
	if s.store == nil {
		return
	}
	if err := s.store.RecordExport(c.Request.Context(), rec); err != nil {
		s.logger.Warn("failed to record export", "id", rec.ID, "error", err)
	}
}
