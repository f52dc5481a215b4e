package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lox/meteopl/internal/client"
	"github.com/lox/meteopl/internal/compare"
	"github.com/lox/meteopl/internal/export"
	"github.com/lox/meteopl/internal/metrics"
	"github.com/lox/meteopl/internal/narrative"
	"github.com/lox/meteopl/internal/records"
	"github.com/lox/meteopl/internal/series"
)

// runPage executes one page submission under the generation guard. A
// result that loses the race to a newer submission is dropped with 409.
func (s *Server) runPage(c *gin.Context, page string, load func(ctx context.Context) (*PageResult, error)) {
	ctx, ticket := s.guard.Begin(c.Request.Context(), page, session(c))
	defer ticket.Release()

	res, err := load(ctx)
	if !s.guard.Current(ticket) {
		s.stale(c, page, ticket)
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	res.Page = page
	res.GeneratedAt = time.Now().UTC()
	if !s.guard.Commit(ticket, res) {
		s.stale(c, page, ticket)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) stale(c *gin.Context, page string, t *Ticket) {
	metrics.StaleResponsesTotal.WithLabelValues(page).Inc()
	s.logger.Debug("discarding stale page result", "page", page, "generation", t.Generation)
	s.writeError(c, errStale)
}

// batchPage fills the table and every chart the batch granularity
// supports. A chart that fails is left out.
func (s *Server) batchPage(batch records.Batch) (*PageResult, error) {
	res := &PageResult{Granularity: batch.Granularity.String(), batch: batch}
	res.Columns, res.Rows = export.Table(batch)

	var errs []error
	for _, kind := range series.Kinds {
		if kind == series.Cities {
			continue
		}
		ds, err := s.cache.Get(batch, kind)
		if errors.Is(err, series.ErrUnsupported) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		res.Charts = append(res.Charts, ds)
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("charts skipped", "granularity", res.Granularity, "error", err)
	}
	return res, nil
}

func (s *Server) handleDaily(c *gin.Context) {
	var q dailyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	s.runPage(c, PageDaily, func(ctx context.Context) (*PageResult, error) {
		batch, err := s.client.Daily(ctx, q.CityID, q.StartDate, q.EndDate)
		if err != nil {
			return nil, err
		}
		return s.batchPage(batch)
	})
}

func (s *Server) handleMonthly(c *gin.Context) {
	var q monthlyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	if q.EndYear*12+q.EndMonth < q.StartYear*12+q.StartMonth {
		badRequest(c, errors.New("koniec zakresu przed początkiem"))
		return
	}
	s.runPage(c, PageMonthly, func(ctx context.Context) (*PageResult, error) {
		batch, err := s.client.Monthly(ctx, q.CityID, client.MonthRange{
			StartMonth: q.StartMonth,
			StartYear:  q.StartYear,
			EndMonth:   q.EndMonth,
			EndYear:    q.EndYear,
		})
		if err != nil {
			return nil, err
		}
		return s.batchPage(batch)
	})
}

func (s *Server) handleYearly(c *gin.Context) {
	var q yearlyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	s.runPage(c, PageYearly, func(ctx context.Context) (*PageResult, error) {
		batch, err := s.client.Yearly(ctx, q.CityID, q.StartYear, q.EndYear)
		if err != nil {
			return nil, err
		}
		return s.batchPage(batch)
	})
}

// handleCompare asks for the server comparison first and only then loads
// the two cities' daily records for the date.
func (s *Server) handleCompare(c *gin.Context) {
	var q compareQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	s.runPage(c, PageCompare, func(ctx context.Context) (*PageResult, error) {
		result, err := s.client.Compare(ctx, q.CityID1, q.CityID2, q.Date)
		if err != nil {
			return nil, err
		}
		daily1, err := s.client.Daily(ctx, q.CityID1, q.Date, q.Date)
		if err != nil {
			return nil, err
		}
		daily2, err := s.client.Daily(ctx, q.CityID2, q.Date, q.Date)
		if err != nil {
			return nil, err
		}

		p1, p2, err := compare.BuildPanels(result, q.Date, daily1, daily2)
		if err != nil {
			return nil, err
		}
		return &PageResult{
			Granularity: records.Daily.String(),
			Panels:      []compare.Panel{p1, p2},
		}, nil
	})
}

func (s *Server) handleCorrelation(c *gin.Context) {
	var q correlationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	s.runPage(c, PageCorrelation, func(ctx context.Context) (*PageResult, error) {
		corr, err := s.client.Correlation(ctx, q.CityID, q.StartDate, q.EndDate, q.Column1, q.Column2)
		if err != nil {
			return nil, err
		}
		return &PageResult{
			Correlation: &corr,
			Charts:      []series.Dataset{series.Scatter(corr)},
		}, nil
	})
}

func (s *Server) handlePrediction(c *gin.Context) {
	var q cityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	s.runPage(c, PagePrediction, func(ctx context.Context) (*PageResult, error) {
		rows, err := s.client.TemperaturePrediction(ctx, q.CityID)
		if err != nil {
			return nil, err
		}
		return &PageResult{
			Granularity: records.Yearly.String(),
			Predictions: rows,
			Charts:      []series.Dataset{series.Prediction(rows)},
		}, nil
	})
}

func (s *Server) handleStats(c *gin.Context) {
	var q dailyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	s.runPage(c, PageStats, func(ctx context.Context) (*PageResult, error) {
		stats, err := s.client.Stats(ctx, q.CityID, q.StartDate, q.EndDate)
		if err != nil {
			return nil, err
		}
		text, err := s.narrator.Narrate(ctx, stats)
		if err != nil {
			return nil, err
		}
		return &PageResult{
			Stats:     stats,
			Sentences: narrative.Describe(stats),
			Narrative: text,
		}, nil
	})
}

func (s *Server) handlePoland(c *gin.Context) {
	var q polandQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	s.runPage(c, PagePoland, func(ctx context.Context) (*PageResult, error) {
		batch, err := s.client.PolandWeather(ctx, q.Date)
		if err != nil {
			return nil, err
		}
		res := &PageResult{Granularity: batch.Granularity.String(), batch: batch}
		res.Columns, res.Rows = export.Table(batch)
		for _, kind := range []series.Kind{series.Cities, series.WindRadar, series.WeatherCodes} {
			ds, err := s.cache.Get(batch, kind)
			if err != nil {
				return nil, err
			}
			res.Charts = append(res.Charts, ds)
		}
		return res, nil
	})
}
