// Package config loads meteopl settings from defaults, an optional YAML
// file and METEOPL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Narrative NarrativeConfig `mapstructure:"narrative"`
	Export    ExportConfig    `mapstructure:"export"`
	Series    SeriesConfig    `mapstructure:"series"`
}

// APIConfig describes the upstream weather API.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"min=1s"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout" validate:"min=1s"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port" validate:"min=1,max=65535"`
	GinMode     string `mapstructure:"gin_mode" validate:"oneof=debug release test"`
	MaxSessions int    `mapstructure:"max_sessions" validate:"min=1"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type StoreConfig struct {
	Path            string `mapstructure:"path" validate:"required"`
	ArchivePayloads bool   `mapstructure:"archive_payloads"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	At      string `mapstructure:"at" validate:"datetime=15:04"`
}

// NarrativeConfig enables the OpenAI rewrite when APIKey is set.
type NarrativeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type ExportConfig struct {
	Delimiter string    `mapstructure:"delimiter" validate:"len=1"`
	BOM       bool      `mapstructure:"bom"`
	FTP       FTPConfig `mapstructure:"ftp"`
}

// FTPConfig is the optional upload target for exports. Empty Addr disables it.
type FTPConfig struct {
	Addr     string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Dir      string        `mapstructure:"dir"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SeriesConfig struct {
	CacheSize int `mapstructure:"cache_size" validate:"min=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.max_retries", 0)
	v.SetDefault("api.breaker_timeout", time.Minute)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.max_sessions", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.path", "data/meteopl.db")
	v.SetDefault("store.archive_payloads", false)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.at", "06:00")
	v.SetDefault("narrative.api_key", "")
	v.SetDefault("narrative.model", "gpt-4o-mini")
	v.SetDefault("export.delimiter", ",")
	v.SetDefault("export.bom", true)
	v.SetDefault("export.ftp.addr", "")
	v.SetDefault("export.ftp.user", "")
	v.SetDefault("export.ftp.password", "")
	v.SetDefault("export.ftp.dir", "")
	v.SetDefault("export.ftp.timeout", 30*time.Second)
	v.SetDefault("series.cache_size", 128)
}

// Load reads configuration from file and environment variables. An empty
// path searches the usual locations and tolerates a missing file; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.meteopl")
	}

	v.SetEnvPrefix("METEOPL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Narrative.APIKey == "" {
		cfg.Narrative.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetServerAddr returns the server address in the format ":port"
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// CSVDelimiter is the first rune of export.delimiter.
func (c *Config) CSVDelimiter() rune {
	for _, r := range c.Export.Delimiter {
		return r
	}
	return ','
}

// NewLogger creates a new slog.Logger writing to stderr.
func (c *Config) NewLogger() *slog.Logger {
	return c.newLogger(os.Stderr)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
