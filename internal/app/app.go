// Package app builds and runs the screener service, wiring configuration,
// logging, the browser session, the acquisition pipeline, and the HTTP
// surface into one unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tradecrawl/screenerd/internal/api"
	"github.com/tradecrawl/screenerd/internal/browser"
	"github.com/tradecrawl/screenerd/internal/clock/system"
	"github.com/tradecrawl/screenerd/internal/config"
	"github.com/tradecrawl/screenerd/internal/events"
	"github.com/tradecrawl/screenerd/internal/id/uuid"
	"github.com/tradecrawl/screenerd/internal/logging"
	"github.com/tradecrawl/screenerd/internal/metrics"
	"github.com/tradecrawl/screenerd/internal/monitor"
	"github.com/tradecrawl/screenerd/internal/screener"
	pgstore "github.com/tradecrawl/screenerd/internal/store/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *pgstore.ControlsStore
	cache     *screener.Cache
	hub       *events.Hub
	manager   *browser.Manager
	pipeline  *screener.Pipeline
	mon       *monitor.Monitor
	apiServer *api.Server
}

// Build creates the application's dependencies. The browser session itself
// is not launched here; Run does that so a missing Chrome binary degrades
// the service instead of aborting startup checks.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies")

	clock := system.New()
	ids := uuid.New()

	if err := setupStore(ctx, app); err != nil {
		return nil, err
	}
	if err := setupEvents(app); err != nil {
		return nil, err
	}

	var store screener.ConfigStore = screener.NopStore{}
	if app.store != nil {
		store = app.store
	}
	app.cache = screener.NewCache(store, clock, cfg.Cache.TTL, logger.Named("cache"))

	app.manager = browser.NewManager(browser.Config{
		Headless:          cfg.Browser.Headless,
		WindowWidth:       cfg.Browser.WindowWidth,
		WindowHeight:      cfg.Browser.WindowHeight,
		InitialURL:        cfg.Browser.InitialURL,
		CookieFile:        cfg.Browser.CookieFile,
		DownloadDirPrefix: cfg.Browser.DownloadDirPrefix,
		ExecPath:          cfg.Browser.ExecPath,
		UserAgent:         cfg.Browser.UserAgent,
		ActionTimeout:     cfg.Browser.ActionTimeout,
		RestartPause:      cfg.Timings.RestartPause,
	}, logger.Named("browser"))

	filter := screener.NewFilterProtocol(app.manager, cfg.Timings, logger.Named("filter"))
	detector := screener.NewDownloadDetector(cfg.Timings.DownloadPoll, logger.Named("detector"))
	app.pipeline = screener.NewPipeline(
		app.cache,
		app.manager,
		filter,
		detector,
		app.hub,
		clock,
		ids,
		cfg.Timings,
		cfg.Scrape.MaxRows,
		logger.Named("pipeline"),
	)

	app.mon = monitor.New(app.manager, clock, ids, cfg.Monitor.Interval, app.hub, logger.Named("monitor"))

	app.apiServer = api.NewServer(
		app.pipeline,
		app.manager,
		app.cache,
		app.hub,
		ids,
		clock,
		apiOptions(cfg),
		logger.Named("api"),
	)
	return app, nil
}

func apiOptions(cfg *config.Config) api.Options {
	opts := api.Options{RequestTimeout: cfg.Server.RequestTimeout}
	if cfg.Auth.Enabled {
		opts.APIKey = cfg.Auth.APIKey
	}
	return opts
}

func setupStore(ctx context.Context, app *App) error {
	if app.cfg.Database.DSN == "" {
		app.logger.Warn("no database DSN configured, serving built-in screener defaults")
		return nil
	}
	store, err := pgstore.NewControlsStore(ctx, pgstore.ControlsStoreConfig{
		DSN:             app.cfg.Database.DSN,
		Table:           app.cfg.Database.Table,
		MaxConns:        app.cfg.Database.MaxConns,
		MinConns:        app.cfg.Database.MinConns,
		MaxConnLifetime: app.cfg.Database.MaxConnLifetime,
		QueryTimeout:    app.cfg.Database.QueryTimeout,
	})
	if err != nil {
		return fmt.Errorf("controls store init failed: %w", err)
	}
	app.store = store
	app.logger.Info("controls store initialized", zap.String("table", app.cfg.Database.Table))
	return nil
}

func setupEvents(app *App) error {
	var sinkList []events.Sink
	if app.cfg.Events.LogSink {
		sinkList = append(sinkList, events.NewLogSink(app.logger.Named("event_log")))
	}
	promSink, err := events.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("event metrics init failed: %w", err)
	}
	sinkList = append(sinkList, promSink)

	app.hub = events.NewHub(events.Config{
		BufferSize:     app.cfg.Events.BufferSize,
		MaxBatchEvents: app.cfg.Events.MaxBatchEvents,
		MaxBatchWait:   app.cfg.Events.MaxBatchWait,
		Logger:         app.logger.Named("event_hub"),
	}, sinkList...)
	app.logger.Info("event hub initialized",
		zap.Int("buffer_size", app.cfg.Events.BufferSize),
		zap.Int("max_batch_events", app.cfg.Events.MaxBatchEvents),
		zap.Duration("max_batch_wait", app.cfg.Events.MaxBatchWait),
	)
	return nil
}

// Run starts the application and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.manager.Initialize(ctx); err != nil {
		// The monitor (or POST /restart) can bring the session up later, so
		// a failed launch degrades the service rather than killing it.
		a.logger.Error("browser session init failed", zap.Error(err))
	}

	entries := a.cache.FetchActive(ctx, false)
	a.logger.Info("screener configuration loaded", zap.Int("active", len(entries)))

	if a.cfg.Monitor.Enabled {
		go func() {
			a.logger.Info("session monitor started")
			a.mon.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return a.Close(shutdownCtx)
}

// Close gracefully shuts down the application.
func (a *App) Close(ctx context.Context) error {
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("event hub close failed", zap.Error(err))
		}
	}
	a.manager.Cleanup()
	if a.store != nil {
		a.store.Close()
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}
