package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.DatabaseURL != "schoolsched.db" {
		t.Fatalf("database = %s %s, want sqlite schoolsched.db", cfg.DatabaseDriver, cfg.DatabaseURL)
	}
	if cfg.HTTPRequestTimeout != 15*time.Second {
		t.Fatalf("http request timeout = %v, want 15s", cfg.HTTPRequestTimeout)
	}
	if cfg.GRPCEnabled {
		t.Fatalf("grpc must be disabled by default")
	}
	if !cfg.AutoMigrate || !cfg.MetricsEnabled {
		t.Fatalf("auto_migrate and metrics must default on")
	}
	if cfg.CORSAllowedOrigin != "*" {
		t.Fatalf("cors origin = %q, want *", cfg.CORSAllowedOrigin)
	}
	if cfg.AMQPURL != "" {
		t.Fatalf("amqp url = %q, want empty", cfg.AMQPURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCHOOLSCHED_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("SCHOOLSCHED_DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/school")
	t.Setenv("SCHOOLSCHED_GRPC_ENABLED", "true")
	t.Setenv("SCHOOLSCHED_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("SCHOOLSCHED_RATELIMIT_RPS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.DatabaseDriver != "postgres" || cfg.DatabaseURL != "postgres://u:p@db:5432/school" {
		t.Fatalf("database = %s %s", cfg.DatabaseDriver, cfg.DatabaseURL)
	}
	if !cfg.GRPCEnabled {
		t.Fatalf("grpc enabled = false, want true")
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown timeout = %v, want 3s", cfg.ShutdownTimeout)
	}
	if cfg.AMQPURL != "amqp://guest:guest@mq:5672/" {
		t.Fatalf("amqp url = %q", cfg.AMQPURL)
	}
	if cfg.RateLimitRPS != 0 {
		t.Fatalf("rate limit rps = %v, want 0", cfg.RateLimitRPS)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("SCHOOLSCHED_HTTP_REQUEST_TIMEOUT", "soon")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "http.request_timeout") {
		t.Fatalf("error = %q, want key name", err.Error())
	}
}
