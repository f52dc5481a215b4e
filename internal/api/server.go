// Package api serves the dashboard pages as JSON view models.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/meteopl/internal/client"
	"github.com/lox/meteopl/internal/export"
	"github.com/lox/meteopl/internal/narrative"
	"github.com/lox/meteopl/internal/series"
	"github.com/lox/meteopl/internal/store"
)

// SessionHeader carries the browser tab identity used by the page guard.
const SessionHeader = "X-Session-ID"

const defaultSession = "default"

type Config struct {
	Client   *client.Client
	Store    *store.Store // optional export log
	Narrator narrative.Narrator
	Uploader export.Uploader // optional FTP sink
	UIState  *UIState

	CSV         export.CSVOptions
	PNG         export.PNGOptions
	CacheSize   int
	MaxSessions int // page states kept by the guard

	Port    int
	GinMode string
	Logger  *slog.Logger
}

type Server struct {
	client   *client.Client
	store    *store.Store
	narrator narrative.Narrator
	uploader export.Uploader
	ui       *UIState
	guard    *Guard
	cache    *series.Cache

	csv    export.CSVOptions
	png    export.PNGOptions
	port   int
	logger *slog.Logger
	router *gin.Engine
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Client == nil {
		return nil, errors.New("api: client is required")
	}
	if cfg.Narrator == nil {
		cfg.Narrator = narrative.Plain{}
	}
	if cfg.UIState == nil {
		cfg.UIState = NewUIState()
	}
	if cfg.CSV.Delimiter == 0 {
		cfg.CSV = export.DefaultCSVOptions()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GinMode == "" {
		cfg.GinMode = gin.ReleaseMode
	}

	cache, err := series.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	guard, err := NewGuard(cfg.MaxSessions)
	if err != nil {
		return nil, err
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		client:   cfg.Client,
		store:    cfg.Store,
		narrator: cfg.Narrator,
		uploader: cfg.Uploader,
		ui:       cfg.UIState,
		guard:    guard,
		cache:    cache,
		csv:      cfg.CSV,
		png:      cfg.PNG,
		port:     cfg.Port,
		logger:   cfg.Logger,
		router:   router,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/cities", s.handleCities)
		api.GET("/columns", s.handleColumns)

		api.GET("/daily", s.handleDaily)
		api.GET("/monthly", s.handleMonthly)
		api.GET("/yearly", s.handleYearly)
		api.GET("/compare", s.handleCompare)
		api.GET("/correlation", s.handleCorrelation)
		api.GET("/prediction", s.handlePrediction)
		api.GET("/stats", s.handleStats)
		api.GET("/poland", s.handlePoland)

		api.GET("/pages/:page/last", s.handleLast)
		api.GET("/export/:page", s.handleExport)
		api.GET("/exports", s.handleExports)

		api.GET("/ui-state", s.handleGetUIState)
		api.PUT("/ui-state", s.handlePutUIState)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", "error", err)
		}
	}()

	s.logger.Info("api server starting", "port", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func session(c *gin.Context) string {
	if id := c.GetHeader(SessionHeader); id != "" {
		return id
	}
	if id := c.Query("session"); id != "" {
		return id
	}
	return defaultSession
}
