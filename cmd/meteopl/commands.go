package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lox/meteopl/internal/api"
	"github.com/lox/meteopl/internal/archive"
	"github.com/lox/meteopl/internal/client"
	"github.com/lox/meteopl/internal/compare"
	"github.com/lox/meteopl/internal/export"
	"github.com/lox/meteopl/internal/narrative"
	"github.com/lox/meteopl/internal/records"
	"github.com/lox/meteopl/internal/series"
	"github.com/lox/meteopl/internal/store"
)

const dateFormat = "2006-01-02"

type ServeCmd struct {
	Port int `help:"Override server.port." optional:""`
}

func (c *ServeCmd) Run(rc *runContext) error {
	if c.Port != 0 {
		rc.cfg.Server.Port = c.Port
	}

	st, err := rc.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var recorder client.PayloadRecorder
	if rc.cfg.Store.ArchivePayloads {
		recorder = st
	}
	cl := rc.newClient(recorder)

	cfg := api.Config{
		Client:      cl,
		Store:       st,
		Narrator:    rc.narrator(),
		UIState:     api.NewUIState(),
		CSV:         rc.csvOptions(),
		CacheSize:   rc.cfg.Series.CacheSize,
		MaxSessions: rc.cfg.Server.MaxSessions,
		Port:        rc.cfg.Server.Port,
		GinMode:     rc.cfg.Server.GinMode,
		Logger:      rc.logger,
	}
	if u := rc.uploader(); u != nil {
		cfg.Uploader = u
	}
	server, err := api.NewServer(cfg)
	if err != nil {
		return err
	}

	if rc.cfg.Archive.Enabled {
		arch := archive.New(cl, st, rc.cfg.Archive.At, rc.logger)
		if err := arch.Start(); err != nil {
			return err
		}
		defer arch.Stop()
	}

	return server.Run(rc.ctx)
}

type CitiesCmd struct{}

func (c *CitiesCmd) Run(rc *runContext) error {
	cities, err := rc.newClient(nil).Cities(rc.ctx)
	if err != nil {
		return err
	}
	for _, city := range cities {
		fmt.Printf("%d\t%s\n", city.ID, city.Name)
	}
	return nil
}

type ColumnsCmd struct{}

func (c *ColumnsCmd) Run(rc *runContext) error {
	cols, err := rc.newClient(nil).Columns(rc.ctx)
	if err != nil {
		return err
	}
	for _, col := range cols {
		fmt.Println(col)
	}
	return nil
}

type DailyCmd struct {
	City  int64     `arg:"" help:"City ID."`
	Start time.Time `arg:"" format:"2006-01-02" help:"First day (YYYY-MM-DD)."`
	End   time.Time `arg:"" format:"2006-01-02" help:"Last day (YYYY-MM-DD)."`
}

func (c *DailyCmd) Run(rc *runContext) error {
	batch, err := rc.newClient(nil).Daily(rc.ctx, c.City, c.Start, c.End)
	if err != nil {
		return err
	}
	return writeBatch(os.Stdout, batch, rc)
}

type MonthlyCmd struct {
	City       int64 `arg:"" help:"City ID."`
	StartYear  int   `arg:""`
	StartMonth int   `arg:""`
	EndYear    int   `arg:""`
	EndMonth   int   `arg:""`
}

func (c *MonthlyCmd) Run(rc *runContext) error {
	batch, err := rc.newClient(nil).Monthly(rc.ctx, c.City, client.MonthRange{
		StartMonth: c.StartMonth,
		StartYear:  c.StartYear,
		EndMonth:   c.EndMonth,
		EndYear:    c.EndYear,
	})
	if err != nil {
		return err
	}
	return writeBatch(os.Stdout, batch, rc)
}

type YearlyCmd struct {
	City      int64 `arg:"" help:"City ID."`
	StartYear int   `arg:""`
	EndYear   int   `arg:""`
}

func (c *YearlyCmd) Run(rc *runContext) error {
	batch, err := rc.newClient(nil).Yearly(rc.ctx, c.City, c.StartYear, c.EndYear)
	if err != nil {
		return err
	}
	return writeBatch(os.Stdout, batch, rc)
}

type CompareCmd struct {
	City1 int64     `arg:""`
	City2 int64     `arg:""`
	Date  time.Time `arg:"" format:"2006-01-02"`
}

func (c *CompareCmd) Run(rc *runContext) error {
	cl := rc.newClient(nil)
	result, err := cl.Compare(rc.ctx, c.City1, c.City2, c.Date)
	if err != nil {
		return err
	}
	daily1, err := cl.Daily(rc.ctx, c.City1, c.Date, c.Date)
	if err != nil {
		return err
	}
	daily2, err := cl.Daily(rc.ctx, c.City2, c.Date, c.Date)
	if err != nil {
		return err
	}
	p1, p2, err := compare.BuildPanels(result, c.Date, daily1, daily2)
	if err != nil {
		return err
	}
	for _, p := range []compare.Panel{p1, p2} {
		fmt.Printf("%s (%s)  średnia %s  wiatr %s\n", p.City.Name, p.Date, p.AverageTemperature, p.WindCardinal)
		for _, r := range p.Rows {
			fmt.Printf("  %-32s %12s %10s\n", r.Label, r.Value, r.Delta)
		}
	}
	return nil
}

type CorrelationCmd struct {
	City    int64     `arg:""`
	Start   time.Time `arg:"" format:"2006-01-02"`
	End     time.Time `arg:"" format:"2006-01-02"`
	Column1 string    `arg:""`
	Column2 string    `arg:""`
}

func (c *CorrelationCmd) Run(rc *runContext) error {
	corr, err := rc.newClient(nil).Correlation(rc.ctx, c.City, c.Start, c.End, c.Column1, c.Column2)
	if err != nil {
		return err
	}
	fmt.Printf("%s / %s: r = %.4f (%d par)\n", corr.Column1, corr.Column2, corr.Correlation, min(len(corr.Values1), len(corr.Values2)))
	return nil
}

type PredictCmd struct {
	City int64 `arg:""`
}

func (c *PredictCmd) Run(rc *runContext) error {
	rows, err := rc.newClient(nil).TemperaturePrediction(rc.ctx, c.City)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

type StatsCmd struct {
	City  int64     `arg:""`
	Start time.Time `arg:"" format:"2006-01-02"`
	End   time.Time `arg:"" format:"2006-01-02"`
	Plain bool      `help:"Skip the OpenAI rewrite."`
}

func (c *StatsCmd) Run(rc *runContext) error {
	stats, err := rc.newClient(nil).Stats(rc.ctx, c.City, c.Start, c.End)
	if err != nil {
		return err
	}
	var n narrative.Narrator = narrative.Plain{}
	if !c.Plain {
		n = rc.narrator()
	}
	text, err := n.Narrate(rc.ctx, stats)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

type PolandCmd struct {
	Date time.Time `arg:"" format:"2006-01-02"`
}

func (c *PolandCmd) Run(rc *runContext) error {
	batch, err := rc.newClient(nil).PolandWeather(rc.ctx, c.Date)
	if err != nil {
		return err
	}
	return writeBatch(os.Stdout, batch, rc)
}

type ExportCmd struct {
	Page   string    `arg:"" enum:"daily,monthly,yearly,poland" help:"Page to export (daily, monthly, yearly, poland)."`
	City   int64     `help:"City ID (not used for poland)."`
	Start  time.Time `format:"2006-01-02" help:"First day; monthly and yearly use its month and year."`
	End    time.Time `format:"2006-01-02" help:"Last day; poland uses this date."`
	Format string    `enum:"csv,png" default:"csv"`
	Chart  string    `help:"Chart kind for PNG exports." default:"temperature"`
	Output string    `short:"o" help:"Output file, - for stdout." default:"-"`
	Upload bool      `help:"Upload to the configured FTP server instead of writing a file."`
}

func (c *ExportCmd) fetch(rc *runContext) (records.Batch, error) {
	cl := rc.newClient(nil)
	switch c.Page {
	case api.PageDaily:
		return cl.Daily(rc.ctx, c.City, c.Start, c.End)
	case api.PageMonthly:
		return cl.Monthly(rc.ctx, c.City, client.MonthRange{
			StartMonth: int(c.Start.Month()),
			StartYear:  c.Start.Year(),
			EndMonth:   int(c.End.Month()),
			EndYear:    c.End.Year(),
		})
	case api.PageYearly:
		return cl.Yearly(rc.ctx, c.City, c.Start.Year(), c.End.Year())
	default:
		return cl.PolandWeather(rc.ctx, c.End)
	}
}

func (c *ExportCmd) Run(rc *runContext) error {
	if c.Page != api.PagePoland && (c.City == 0 || c.Start.IsZero() || c.End.IsZero()) {
		return errors.New("--city, --start and --end are required")
	}
	if c.Page == api.PagePoland && c.End.IsZero() {
		return errors.New("--end is required")
	}
	format, err := export.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	batch, err := c.fetch(rc)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	rows := 0
	if format == export.CSV {
		if rows, err = export.WriteCSV(&buf, batch, rc.csvOptions()); err != nil {
			return err
		}
	} else {
		ds, err := series.ToSeries(batch, series.Kind(c.Chart))
		if err != nil {
			return err
		}
		if err := export.RenderPNG(&buf, ds, export.PNGOptions{}); err != nil {
			return err
		}
	}

	rec := &store.Export{
		ID:          uuid.NewString(),
		Page:        c.Page,
		Format:      string(format),
		Granularity: batch.Granularity.String(),
		Rows:        rows,
		SizeBytes:   int64(buf.Len()),
		CreatedAt:   time.Now().UTC(),
	}
	name := export.Filename(c.Page, format, rec.CreatedAt)

	switch {
	case c.Upload:
		u := rc.uploader()
		if u == nil {
			return errors.New("export.ftp.addr is not configured")
		}
		if err := u.Upload(rc.ctx, name, &buf); err != nil {
			return err
		}
		rec.Destination = u.Destination(name)
	case c.Output == "-":
		if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	default:
		if err := os.WriteFile(c.Output, buf.Bytes(), 0o644); err != nil {
			return err
		}
		rec.Destination = c.Output
	}

	st, err := rc.openStore()
	if err != nil {
		rc.logger.Warn("export not logged", "error", err)
		return nil
	}
	defer st.Close()
	if err := st.RecordExport(rc.ctx, rec); err != nil {
		rc.logger.Warn("export not logged", "error", err)
	}
	rc.logger.Info("exported", "id", rec.ID, "file", name, "rows", rows, "destination", rec.Destination)
	return nil
}

type ArchiveCmd struct {
	Date time.Time `format:"2006-01-02" help:"Snapshot day (default: yesterday, UTC)."`
}

func (c *ArchiveCmd) Run(rc *runContext) error {
	date := c.Date
	if date.IsZero() {
		date = time.Now().UTC().AddDate(0, 0, -1)
	}

	st, err := rc.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := archive.New(rc.newClient(nil), st, rc.cfg.Archive.At, rc.logger).RunOnce(rc.ctx, date)
	if err != nil {
		return err
	}
	fmt.Printf("archived %s: %d records (%d degraded), payload %d\n",
		date.Format(dateFormat), run.Records.Int64, run.Degraded.Int64, run.PayloadID.Int64)
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(rc *runContext) error {
	st, err := rc.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	version, err := st.MigrationVersion()
	if err != nil {
		return err
	}
	fmt.Printf("database at version %d\n", version)
	return nil
}

func writeBatch(w io.Writer, batch records.Batch, rc *runContext) error {
	if _, err := export.WriteCSV(w, batch, rc.csvOptions()); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			rc.logger.Info("no records")
			return nil
		}
		return err
	}
	return nil
}
