package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/meteopl/internal/client"
	"github.com/lox/meteopl/internal/config"
	"github.com/lox/meteopl/internal/export"
	"github.com/lox/meteopl/internal/narrative"
	"github.com/lox/meteopl/internal/store"
)

type CLI struct {
	Config   string                   `help:"Path to config file." type:"path" optional:""`
	EnvFile  kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file.'"`
	LogLevel string                   `help:"Override log.level (debug, info, warn, error)." optional:""`

	Serve       ServeCmd       `cmd:"" default:"1" help:"Run the dashboard backend."`
	Cities      CitiesCmd      `cmd:"" help:"List cities."`
	Columns     ColumnsCmd     `cmd:"" help:"List columns usable for correlation."`
	Daily       DailyCmd       `cmd:"" help:"Print daily records as CSV."`
	Monthly     MonthlyCmd     `cmd:"" help:"Print monthly records as CSV."`
	Yearly      YearlyCmd      `cmd:"" help:"Print yearly records as CSV."`
	Compare     CompareCmd     `cmd:"" help:"Compare two cities on a date."`
	Correlation CorrelationCmd `cmd:"" help:"Correlate two columns for a city."`
	Predict     PredictCmd     `cmd:"" help:"Show the climate prediction for a city."`
	Stats       StatsCmd       `cmd:"" help:"Describe statistics for a city and period."`
	Poland      PolandCmd      `cmd:"" help:"Print the Poland-wide snapshot for a day as CSV."`
	Export      ExportCmd      `cmd:"" help:"Export a page as CSV or PNG."`
	Archive     ArchiveCmd     `cmd:"" help:"Archive the Poland-wide snapshot for a day."`
	Migrate     MigrateCmd     `cmd:"" help:"Apply database migrations."`
}

// runContext is bound into every command's Run method.
type runContext struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("meteopl"),
		kong.Description("Weather data for Polish cities: dashboard backend and command line client."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meteopl: %v\n", err)
		os.Exit(1)
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = kctx.Run(&runContext{ctx: ctx, cfg: cfg, logger: logger})
	kctx.FatalIfErrorf(err)
}

func (rc *runContext) newClient(recorder client.PayloadRecorder) *client.Client {
	return client.New(client.Config{
		BaseURL:        rc.cfg.API.BaseURL,
		Timeout:        rc.cfg.API.Timeout,
		MaxRetries:     rc.cfg.API.MaxRetries,
		BreakerTimeout: rc.cfg.API.BreakerTimeout,
		Recorder:       recorder,
		Logger:         rc.logger,
	})
}

func (rc *runContext) openStore() (*store.Store, error) {
	st, err := store.Open(rc.cfg.Store.Path, rc.logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func (rc *runContext) narrator() narrative.Narrator {
	if rc.cfg.Narrative.APIKey == "" {
		return narrative.Plain{}
	}
	n, err := narrative.NewOpenAI(rc.cfg.Narrative.APIKey, rc.cfg.Narrative.Model, rc.logger)
	if err != nil {
		rc.logger.Warn("openai narration disabled", "error", err)
		return narrative.Plain{}
	}
	return n
}

// uploader returns nil when no FTP server is configured.
func (rc *runContext) uploader() *export.FTPUploader {
	f := rc.cfg.Export.FTP
	if f.Addr == "" {
		return nil
	}
	return &export.FTPUploader{
		Addr:     f.Addr,
		User:     f.User,
		Password: f.Password,
		Dir:      f.Dir,
		Timeout:  f.Timeout,
	}
}

func (rc *runContext) csvOptions() export.CSVOptions {
	return export.CSVOptions{Delimiter: rc.cfg.CSVDelimiter(), BOM: rc.cfg.Export.BOM}
}
