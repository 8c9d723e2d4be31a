package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sleepsafe/internal/api"
	"sleepsafe/internal/config"
	"sleepsafe/internal/engine"
	"sleepsafe/internal/ingest"
	"sleepsafe/internal/logging"
	"sleepsafe/internal/model"
	"sleepsafe/internal/storage"
	"sleepsafe/internal/tracking"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	path := *configPath
	if env := os.Getenv("SLEEPSAFE_CONFIG"); env != "" {
		path = env
	}
	path = config.ResolvePath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path, config.DefaultConfig()); err != nil {
			logging.NewLogger("info").Error("failed to write default config", "path", path, "err", err)
			os.Exit(1)
		}
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		logging.NewLogger("info").Error("failed to load config", "path", path, "err", err)
		os.Exit(1)
	}

	cfg := mgr.Get()
	if uri := os.Getenv("TRACKING_URI"); uri != "" {
		cfg.Tracking.URI = uri
	}
	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting sleepsafe", "version", version, "config", mgr.Path())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage setup failed", "err", err)
		os.Exit(1)
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			logger.Error("storage init failed", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		logger.Info("audit storage enabled", "driver", cfg.Storage.Driver)
	}

	var trk *tracking.Client
	experimentID := ""
	if cfg.Tracking.Enabled {
		trk = tracking.NewClient(cfg.Tracking, logger)
		experimentID, err = trk.GetOrCreateExperiment(ctx, cfg.Tracking.Experiment)
		if err != nil {
			logger.Error("tracking experiment setup failed", "err", err)
			os.Exit(1)
		}
		logger.Info("tracking enabled", "uri", cfg.Tracking.URI, "experiment_id", experimentID)
	}

	eng := engine.NewEngine(cfg, logger, store)
	readings := make(chan model.TelemetryReading, cfg.Ingest.ChannelBuffer)
	eng.Start(ctx, readings)
	ingest.StartKafka(ctx, mgr, readings, logger)
	api.Start(ctx, mgr, eng, trk, experimentID, store, logger, version)

	if store != nil {
		_ = store.SaveSystemEvent(ctx, "service_started", "info", "sleepsafe service started", nil)
	}

	go mgr.Watch(3*time.Second, func(next *config.Config) {
		logger.Info("config reloaded", "path", mgr.Path())
		eng.UpdateConfig(next)
	}, func(err error) {
		logger.Warn("config reload failed", "err", err)
	}, ctx.Done())

	<-ctx.Done()
	logger.Info("shutting down")
	if store != nil {
		_ = store.SaveSystemEvent(context.Background(), "service_stopped", "info", "sleepsafe service stopped", nil)
	}
}
