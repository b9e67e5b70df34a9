// The ingestor subscribes to the sensing channels and persists readings
// without serving the query API. Run it to scale ingestion separately from
// the dashboard server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"vehicle-sensor-platform/backend/internal/config"
	"vehicle-sensor-platform/backend/internal/db"
	"vehicle-sensor-platform/backend/internal/ingest"
	"vehicle-sensor-platform/backend/internal/observe"
	"vehicle-sensor-platform/backend/internal/reading/cache"
	"vehicle-sensor-platform/backend/internal/reading/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("config: DATABASE_URL must be set")
	}
	if cfg.MQTTBroker == "" {
		log.Fatal("config: MQTT_BROKER must be set")
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

	meter, err := observe.NewMeter(ctx, cfg.OTLPEndpoint, "vehicle-sensor-ingestor")
	if err != nil {
		logger.Fatal("metrics setup failed", zap.Error(err))
	}
	defer meter.Shutdown(ctx)

	metrics, err := observe.NewIngestMetrics(meter.Provider.Meter("ingest"))
	if err != nil {
		logger.Fatal("ingest metrics setup failed", zap.Error(err))
	}

	var recorder ingest.LatestRecorder
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, latest-position cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			recorder = cache.NewLatestPosition(rdb)
		}
	}

	sub := ingest.New(ingest.Config{
		Broker:        cfg.MQTTBroker,
		ClientID:      cfg.MQTTClientID,
		Username:      cfg.MQTTUsername,
		Password:      cfg.MQTTPassword,
		MotionTopic:   cfg.MotionTopic,
		PositionTopic: cfg.PositionTopic,
		Workers:       cfg.IngestWorkers,
		QueueSize:     cfg.IngestQueue,
	}, repository.NewPostgresRepository(sqlDB), recorder, metrics, logger)
	if err := sub.Start(); err != nil {
		logger.Fatal("broker connect failed", zap.Error(err))
	}
	logger.Info("ingestion running",
		zap.String("broker", cfg.MQTTBroker),
		zap.String("motion_topic", cfg.MotionTopic),
		zap.String("position_topic", cfg.PositionTopic))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	sub.Stop()
	logger.Info("stopped")
}
