package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"autogallery/internal/cache"
	"autogallery/internal/database"
	"autogallery/internal/filesystem"
	"autogallery/internal/handlers"
	"autogallery/internal/listing"
	"autogallery/internal/logging"
	"autogallery/internal/media"
	"autogallery/internal/memory"
	"autogallery/internal/metrics"
	"autogallery/internal/middleware"
	"autogallery/internal/startup"
	"autogallery/internal/sweep"
)

const metricsCollectionInterval = time.Minute

func main() {
	startTime := time.Now()

	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	root := sweep.Root{
		Source:       config.SourceDir,
		Cache:        config.CacheDir,
		ProgressFile: config.ProgressFile,
	}
	layout, err := cache.NewLayout(root.Source, root.Cache)
	if err != nil {
		startup.LogFatal("Cache layout error: %v", err)
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"source":   config.SourceDir,
		"cache":    config.CacheDir,
		"database": config.DatabaseDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics(config.SourceDir)
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	db := openDatabase(config)
	if db != nil {
		defer db.Close()
	}

	if config.UseVips {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using pure Go decoding: %v", err)
		}
		defer media.ShutdownVips()
	}
	gen := media.NewGenerator(media.Options{
		MaxWidth:  config.ThumbMaxWidth,
		MaxHeight: config.ThumbMaxHeight,
		Quality:   config.ThumbQuality,
		UseVips:   config.UseVips && media.IsVipsAvailable(),
	})
	startup.LogThumbnailInit(config.ThumbMaxWidth, config.ThumbMaxHeight, config.ThumbQuality, media.IsVipsAvailable())

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	// A nil *database.Database must not end up inside the interfaces.
	var (
		ledger   sweep.Ledger
		pruner   sweep.Pruner
		failures metrics.FailureCounter
	)
	if db != nil {
		ledger, pruner, failures = db, db, db
	}

	scheduler := sweep.New(sweep.Config{
		Interval: config.SweepInterval,
		Workers:  config.SweepWorkers,
	}, gen, ledger, monitor)
	startup.LogSweepInit(config.SweepInterval, scheduler.Workers(), config.GCSchedule)

	maintenance := sweep.NewMaintenance(scheduler, root, pruner, config.FailureRetention)
	if config.GCSchedule != "" {
		if err := maintenance.Schedule(config.GCSchedule); err != nil {
			startup.LogFatal("GC_SCHEDULE: %v", err)
		}
		maintenance.Start()
	}

	collector := metrics.NewCollector(cache.Stats{Layout: layout}, failures, metricsCollectionInterval)
	collector.Start()

	listCfg := listing.Config{Layout: layout}
	if config.ListingGenerate {
		listCfg.Generator = gen
	}
	h := handlers.New(config, listing.New(listCfg), scheduler, db, root)

	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           middleware.Logger(loggingConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h.MetricsHandler())
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go handleShutdown(sigs, shutdownDone, srv, metricsSrv, scheduler, maintenance, monitor, collector)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	// ListenAndServe returns as soon as Shutdown closes the listener; the
	// remaining steps and in-flight requests finish before main returns.
	<-shutdownDone
}

// openDatabase returns nil when the ledger is disabled or cannot be opened;
// sweeps then run without it.
func openDatabase(config *startup.Config) *database.Database {
	if !config.DatabaseEnabled {
		startup.LogDatabaseInit(0, errors.New("database directory is not writable"))
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	startup.LogDatabaseInit(time.Since(start), err)
	if err != nil {
		return nil
	}
	return db
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health checks
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Gallery routes; the first visit starts the sweep loop.
	gallery := r.NewRoute().Subrouter()
	gallery.Use(middleware.LazyStart(h.StartSweeps))
	gallery.HandleFunc("/api/list", h.ListDirectory).Methods("GET")
	gallery.HandleFunc("/files/{path:.*}", h.GetFile).Methods("GET", "HEAD")
	gallery.HandleFunc("/cache/{path:.*}", h.GetArtifact).Methods("GET", "HEAD")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/progress", h.GetProgress).Methods("GET")
	api.HandleFunc("/sweep", h.GetSweepStatus).Methods("GET")
	api.HandleFunc("/sweep", h.TriggerSweep).Methods("POST")
	api.HandleFunc("/sweeps", h.GetSweepHistory).Methods("GET")

	// Icons and the front end
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(config.StaticDir)))

	return r
}

func startMetricsServer(port string, handler http.Handler) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

// handleShutdown waits for a signal on sigs, stops everything in order and
// closes done.
func handleShutdown(sigs <-chan os.Signal, done chan<- struct{}, srv, metricsSrv *http.Server,
	scheduler *sweep.Scheduler, maintenance *sweep.Maintenance, monitor *memory.Monitor, collector *metrics.Collector) {
	defer close(done)
	sig := <-sigs

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sd := startup.BeginShutdown(ctx, sig.String())
	sd.Step("sweeps", scheduler.Stop)
	sd.Step("maintenance", func(context.Context) error {
		maintenance.Stop()
		return nil
	})
	sd.Step("memory monitor", func(context.Context) error {
		monitor.Stop()
		return nil
	})
	sd.Step("metrics collector", func(context.Context) error {
		collector.Stop()
		return nil
	})
	sd.Step("HTTP server", srv.Shutdown)
	if metricsSrv != nil {
		sd.Step("metrics server", metricsSrv.Shutdown)
	}
	sd.Done()
}
