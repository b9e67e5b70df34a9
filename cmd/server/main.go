package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vehicle-sensor-platform/backend/internal/config"
	"vehicle-sensor-platform/backend/internal/db"
	"vehicle-sensor-platform/backend/internal/ingest"
	"vehicle-sensor-platform/backend/internal/observe"
	"vehicle-sensor-platform/backend/internal/reading/cache"
	"vehicle-sensor-platform/backend/internal/reading/handler"
	"vehicle-sensor-platform/backend/internal/reading/repository"
	"vehicle-sensor-platform/backend/internal/reading/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("config: DATABASE_URL must be set")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	sqlDB, err := db.Connect(cfg.DatabaseURL, 10)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer sqlDB.Close()

	meter, err := observe.NewMeter(ctx, cfg.OTLPEndpoint, "vehicle-sensor-server")
	if err != nil {
		logger.Fatal("metrics setup failed", zap.Error(err))
	}
	defer meter.Shutdown(ctx)

	repo := repository.NewPostgresRepository(sqlDB)

	var latest *cache.LatestPosition
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, serving latest position from the store", zap.Error(err))
		} else {
			defer rdb.Close()
			latest = cache.NewLatestPosition(rdb)
		}
	}

	var latestCache service.LatestCache
	if latest != nil {
		latestCache = latest
	}
	svc := service.New(repo, latestCache, logger)

	mux := http.NewServeMux()
	handler.New(svc, sqlDB, cfg.DefaultQueryLimit, logger).Routes(mux)

	var sub *ingest.Subscriber
	if cfg.MQTTBroker != "" {
		metrics, err := observe.NewIngestMetrics(meter.Provider.Meter("ingest"))
		if err != nil {
			logger.Fatal("ingest metrics setup failed", zap.Error(err))
		}
		var recorder ingest.LatestRecorder
		if latest != nil {
			recorder = latest
		}
		sub = ingest.New(ingest.Config{
			Broker:        cfg.MQTTBroker,
			ClientID:      cfg.MQTTClientID,
			Username:      cfg.MQTTUsername,
			Password:      cfg.MQTTPassword,
			MotionTopic:   cfg.MotionTopic,
			PositionTopic: cfg.PositionTopic,
			Workers:       cfg.IngestWorkers,
			QueueSize:     cfg.IngestQueue,
		}, repo, recorder, metrics, logger)
		if err := sub.Start(); err != nil {
			logger.Fatal("broker connect failed", zap.Error(err))
		}
		logger.Info("ingestion running",
			zap.String("broker", cfg.MQTTBroker),
			zap.String("motion_topic", cfg.MotionTopic),
			zap.String("position_topic", cfg.PositionTopic))
	} else {
		logger.Info("MQTT_BROKER not set, serving queries only")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if sub != nil {
		sub.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	logger.Info("stopped")
}
