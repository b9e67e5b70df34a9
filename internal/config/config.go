// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"vehicle-sensor-platform/backend/internal/reading/query"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the query API listens on (e.g. :5000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN. Required by server, ingestor, migrate and seed.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// MQTTBroker is the broker URL (e.g. tls://broker:8883 or tcp://localhost:1883).
	// When empty the server runs without ingestion; the ingestor refuses to start.
	MQTTBroker string `mapstructure:"MQTT_BROKER"`
	// MQTTClientID identifies this subscriber to the broker.
	MQTTClientID string `mapstructure:"MQTT_CLIENT_ID"`
	// MQTTUsername and MQTTPassword are optional broker credentials.
	MQTTUsername string `mapstructure:"MQTT_USERNAME"`
	MQTTPassword string `mapstructure:"MQTT_PASSWORD"`
	// MotionTopic and PositionTopic are the channels sensing clients publish on.
	MotionTopic   string `mapstructure:"MOTION_TOPIC"`
	PositionTopic string `mapstructure:"POSITION_TOPIC"`

	// RedisAddr enables the latest-position hot cache when set (e.g. localhost:6379).
	// Empty disables the cache; queries then always hit Postgres.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// OTLPEndpoint is the OTLP gRPC collector for metrics (e.g. http://localhost:4317).
	// Empty installs no-op instruments.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// DefaultQueryLimit caps list results when a request sends no limit.
	// 0 means requests without a limit are uncapped.
	DefaultQueryLimit int `mapstructure:"DEFAULT_QUERY_LIMIT"`

	// IngestWorkers is the number of goroutines draining the ingest queue.
	IngestWorkers int `mapstructure:"INGEST_WORKERS"`
	// IngestQueue is the capacity of the ingest queue. When full, inbound
	// messages are dropped and counted rather than buffered without bound.
	IngestQueue int `mapstructure:"INGEST_QUEUE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MQTT_BROKER", "")
	v.SetDefault("MQTT_CLIENT_ID", "vehicle-sensor-backend")
	v.SetDefault("MQTT_USERNAME", "")
	v.SetDefault("MQTT_PASSWORD", "")
	v.SetDefault("MOTION_TOPIC", "/mobile/imu")
	v.SetDefault("POSITION_TOPIC", "/mobile/gps")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("DEFAULT_QUERY_LIMIT", query.DefaultLimit)
	v.SetDefault("INGEST_WORKERS", 4)
	v.SetDefault("INGEST_QUEUE", 256)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.MotionTopic == "" || cfg.PositionTopic == "" {
		return nil, errors.New("config: MOTION_TOPIC and POSITION_TOPIC must be set")
	}
	if cfg.MotionTopic == cfg.PositionTopic {
		return nil, fmt.Errorf("config: MOTION_TOPIC and POSITION_TOPIC must differ, both are %q", cfg.MotionTopic)
	}
	if cfg.DefaultQueryLimit < 0 {
		return nil, fmt.Errorf("config: DEFAULT_QUERY_LIMIT must be >= 0, got %d", cfg.DefaultQueryLimit)
	}
	if cfg.IngestWorkers < 1 {
		return nil, fmt.Errorf("config: INGEST_WORKERS must be >= 1, got %d", cfg.IngestWorkers)
	}
	if cfg.IngestQueue < 1 {
		return nil, fmt.Errorf("config: INGEST_QUEUE must be >= 1, got %d", cfg.IngestQueue)
	}

	return &cfg, nil
}
