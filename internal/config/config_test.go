package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":5000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":5000")
	}
	if cfg.MotionTopic != "/mobile/imu" {
		t.Errorf("MotionTopic = %q, want %q", cfg.MotionTopic, "/mobile/imu")
	}
	if cfg.PositionTopic != "/mobile/gps" {
		t.Errorf("PositionTopic = %q, want %q", cfg.PositionTopic, "/mobile/gps")
	}
	if cfg.MQTTClientID != "vehicle-sensor-backend" {
		t.Errorf("MQTTClientID = %q, want default", cfg.MQTTClientID)
	}
	if cfg.IngestWorkers != 4 {
		t.Errorf("IngestWorkers = %d, want 4", cfg.IngestWorkers)
	}
	if cfg.IngestQueue != 256 {
		t.Errorf("IngestQueue = %d, want 256", cfg.IngestQueue)
	}
	if cfg.DefaultQueryLimit != 2000 {
		t.Errorf("DefaultQueryLimit = %d, want 2000", cfg.DefaultQueryLimit)
	}
	if cfg.MQTTBroker != "" {
		t.Errorf("MQTTBroker = %q, want empty", cfg.MQTTBroker)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8081")
	os.Setenv("DATABASE_URL", "postgres://localhost/vehicle_sensor")
	os.Setenv("MQTT_BROKER", "tls://broker:8883")
	os.Setenv("INGEST_WORKERS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8081")
	}
	if cfg.DatabaseURL != "postgres://localhost/vehicle_sensor" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.MQTTBroker != "tls://broker:8883" {
		t.Errorf("MQTTBroker = %q", cfg.MQTTBroker)
	}
	if cfg.IngestWorkers != 8 {
		t.Errorf("IngestWorkers = %d, want 8", cfg.IngestWorkers)
	}
}

func TestLoad_SameTopics(t *testing.T) {
	os.Clearenv()
	os.Setenv("MOTION_TOPIC", "/mobile/data")
	os.Setenv("POSITION_TOPIC", "/mobile/data")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when both topics are the same")
	}
}

func TestLoad_QueryLimitOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("DEFAULT_QUERY_LIMIT", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultQueryLimit != 500 {
		t.Errorf("DefaultQueryLimit = %d, want 500", cfg.DefaultQueryLimit)
	}
}

func TestLoad_NegativeQueryLimit(t *testing.T) {
	os.Clearenv()
	os.Setenv("DEFAULT_QUERY_LIMIT", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for DEFAULT_QUERY_LIMIT=-1")
	}
}

func TestLoad_InvalidWorkerCount(t *testing.T) {
	os.Clearenv()
	os.Setenv("INGEST_WORKERS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for INGEST_WORKERS=0")
	}
}
