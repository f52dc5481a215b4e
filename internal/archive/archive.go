// Package archive keeps a daily copy of the Poland-wide weather snapshot.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/lox/meteopl/internal/client"
	"github.com/lox/meteopl/internal/metrics"
	"github.com/lox/meteopl/internal/store"
)

const DefaultAt = "06:00"

const runTimeout = 2 * time.Minute

type Archiver struct {
	client    *client.Client
	store     *store.Store
	at        string
	logger    *slog.Logger
	scheduler *gocron.Scheduler
}

// New returns an Archiver that runs daily at at (HH:MM, UTC).
func New(c *client.Client, s *store.Store, at string, logger *slog.Logger) *Archiver {
	if at == "" {
		at = DefaultAt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		client:    c,
		store:     s,
		at:        at,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the daily job for the previous day's snapshot.
func (a *Archiver) Start() error {
	_, err := a.scheduler.Every(1).Day().At(a.at).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		if _, err := a.RunOnce(ctx, yesterday); err != nil {
			a.logger.Error("archive run failed", "date", yesterday.Format("2006-01-02"), "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule archive at %q: %w", a.at, err)
	}

	a.scheduler.StartAsync()
	a.logger.Info("archive scheduled", "at", a.at)
	return nil
}

func (a *Archiver) Stop() {
	a.scheduler.Stop()
}

// RunOnce fetches and archives the snapshot for date. The raw body is kept
// even when it cannot be classified.
func (a *Archiver) RunOnce(ctx context.Context, date time.Time) (*store.ArchiveRun, error) {
	run, err := a.store.StartArchiveRun(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("start archive run: %w", err)
	}

	if err := a.archive(ctx, run, date); err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		metrics.ArchiveRunsTotal.WithLabelValues("error").Inc()
		if cerr := a.store.CompleteArchiveRun(ctx, run); cerr != nil {
			a.logger.Warn("failed to complete archive run", "run", run.ID, "error", cerr)
		}
		return run, err
	}

	run.Success = true
	metrics.ArchiveRunsTotal.WithLabelValues("success").Inc()
	if err := a.store.CompleteArchiveRun(ctx, run); err != nil {
		return run, fmt.Errorf("complete archive run: %w", err)
	}
	a.logger.Info("archived poland snapshot",
		"date", date.Format("2006-01-02"),
		"records", run.Records.Int64,
		"degraded", run.Degraded.Int64)
	return run, nil
}

func (a *Archiver) archive(ctx context.Context, run *store.ArchiveRun, date time.Time) error {
	query := client.PolandQuery(date)
	body, err := a.client.Get(ctx, client.PathPolandWeather, query)
	if err != nil {
		return err
	}

	id, err := a.store.StoreRawPayload(ctx, "poland-weather", client.PathPolandWeather+"?"+query.Encode(), body)
	if err != nil {
		return fmt.Errorf("store payload: %w", err)
	}
	if id == 0 {
		existing, err := a.store.GetRawPayloadByHash(ctx, store.PayloadHash(body))
		if err != nil {
			return fmt.Errorf("find payload: %w", err)
		}
		if existing != nil {
			id = existing.ID
		}
	}
	run.PayloadID = sql.NullInt64{Int64: id, Valid: id != 0}

	batch, err := client.Normalize(body)
	if err != nil {
		return err
	}
	degraded := 0
	for _, r := range batch.Records {
		if r.Degraded {
			degraded++
		}
	}
	run.Records = sql.NullInt64{Int64: int64(batch.Len()), Valid: true}
	run.Degraded = sql.NullInt64{Int64: int64(degraded), Valid: true}
	return nil
}
