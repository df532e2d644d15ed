package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr           string
	HTTPRequestTimeout time.Duration
	CORSAllowedOrigin  string

	GRPCEnabled        bool
	GRPCAddr           string
	GRPCRequestTimeout time.Duration

	DatabaseDriver    string
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	AutoMigrate       bool

	ShutdownTimeout time.Duration
	LogLevel        string

	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool

	AMQPURL      string
	AMQPExchange string
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCHOOLSCHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.request_timeout", "15s")
	v.SetDefault("http.cors_allowed_origin", "*")
	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("grpc.request_timeout", "10s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "schoolsched.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("ratelimit.rps", 20)
	v.SetDefault("ratelimit.burst", 40)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "schoolsched.events")

	_ = v.BindEnv("http.addr", "SCHOOLSCHED_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("http.request_timeout", "SCHOOLSCHED_HTTP_REQUEST_TIMEOUT")
	_ = v.BindEnv("http.cors_allowed_origin", "SCHOOLSCHED_HTTP_CORS_ALLOWED_ORIGIN", "CORS_ALLOWED_ORIGIN")
	_ = v.BindEnv("grpc.enabled", "SCHOOLSCHED_GRPC_ENABLED")
	_ = v.BindEnv("grpc.addr", "SCHOOLSCHED_GRPC_ADDR", "GRPC_ADDR")
	_ = v.BindEnv("grpc.request_timeout", "SCHOOLSCHED_GRPC_REQUEST_TIMEOUT")
	_ = v.BindEnv("database.driver", "SCHOOLSCHED_DATABASE_DRIVER", "DATABASE_DRIVER")
	_ = v.BindEnv("database.url", "SCHOOLSCHED_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.max_open_conns", "SCHOOLSCHED_DATABASE_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.max_idle_conns", "SCHOOLSCHED_DATABASE_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.conn_max_lifetime", "SCHOOLSCHED_DATABASE_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.conn_max_idle_time", "SCHOOLSCHED_DATABASE_CONN_MAX_IDLE_TIME")
	_ = v.BindEnv("database.auto_migrate", "SCHOOLSCHED_DATABASE_AUTO_MIGRATE")
	_ = v.BindEnv("shutdown.timeout", "SCHOOLSCHED_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "SCHOOLSCHED_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("ratelimit.rps", "SCHOOLSCHED_RATELIMIT_RPS")
	_ = v.BindEnv("ratelimit.burst", "SCHOOLSCHED_RATELIMIT_BURST")
	_ = v.BindEnv("metrics.enabled", "SCHOOLSCHED_METRICS_ENABLED")
	_ = v.BindEnv("amqp.url", "SCHOOLSCHED_AMQP_URL", "AMQP_URL", "RABBITMQ_URL")
	_ = v.BindEnv("amqp.exchange", "SCHOOLSCHED_AMQP_EXCHANGE")

	durations := map[string]*time.Duration{}
	var (
		httpTimeout, grpcTimeout, shutdownTimeout time.Duration
		connMaxLifetime, connMaxIdleTime          time.Duration
	)
	durations["http.request_timeout"] = &httpTimeout
	durations["grpc.request_timeout"] = &grpcTimeout
	durations["shutdown.timeout"] = &shutdownTimeout
	durations["database.conn_max_lifetime"] = &connMaxLifetime
	durations["database.conn_max_idle_time"] = &connMaxIdleTime
	for key, dst := range durations {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if burst := v.GetInt("ratelimit.burst"); burst < 0 {
		return Config{}, fmt.Errorf("ratelimit.burst must not be negative, got %d", burst)
	}
	if rps := v.GetFloat64("ratelimit.rps"); rps < 0 {
		return Config{}, fmt.Errorf("ratelimit.rps must not be negative, got %v", rps)
	}

	return Config{
		HTTPAddr:           strings.TrimSpace(v.GetString("http.addr")),
		HTTPRequestTimeout: httpTimeout,
		CORSAllowedOrigin:  strings.TrimSpace(v.GetString("http.cors_allowed_origin")),
		GRPCEnabled:        v.GetBool("grpc.enabled"),
		GRPCAddr:           strings.TrimSpace(v.GetString("grpc.addr")),
		GRPCRequestTimeout: grpcTimeout,
		DatabaseDriver:     strings.TrimSpace(v.GetString("database.driver")),
		DatabaseURL:        v.GetString("database.url"),
		DBMaxOpenConns:     v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:     v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime:  connMaxLifetime,
		DBConnMaxIdleTime:  connMaxIdleTime,
		AutoMigrate:        v.GetBool("database.auto_migrate"),
		ShutdownTimeout:    shutdownTimeout,
		LogLevel:           v.GetString("log.level"),
		RateLimitRPS:       v.GetFloat64("ratelimit.rps"),
		RateLimitBurst:     v.GetInt("ratelimit.burst"),
		MetricsEnabled:     v.GetBool("metrics.enabled"),
		AMQPURL:            strings.TrimSpace(v.GetString("amqp.url")),
		AMQPExchange:       strings.TrimSpace(v.GetString("amqp.exchange")),
	}, nil
}
