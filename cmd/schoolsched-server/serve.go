package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"schoolsched/internal/config"
	"schoolsched/internal/events"
	"schoolsched/internal/metrics"
	"schoolsched/internal/service/scheduling"
	"schoolsched/internal/store/sqlstore"
	grpcTransport "schoolsched/internal/transport/grpc"
	"schoolsched/internal/transport/rest"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when enabled, the gRPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

// serve runs until ctx is cancelled or a listener fails, then shuts both
// servers down within cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.Bool("grpc_enabled", cfg.GRPCEnabled),
		slog.String("log_level", cfg.LogLevel),
	)

	driver, err := sqlstore.ParseDriver(cfg.DatabaseDriver)
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := sqlstore.MigrateUp(driver, cfg.DatabaseURL); err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(driver, cfg.DatabaseURL)...)
			log.Error("database migration failed", args...)
			return err
		}
	}

	log.Info("connecting to database", databaseLogArgs(driver, cfg.DatabaseURL)...)
	db, err := sqlstore.Open(driver, cfg.DatabaseURL, sqlstore.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(driver, cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return err
	}
	defer func() {
		if err := sqlstore.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		log.Error("event publisher setup failed", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", slog.Any("err", err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	st := sqlstore.New(db)
	svc := scheduling.NewService(st,
		scheduling.WithLogger(log),
		scheduling.WithMetrics(collector),
		scheduling.WithPublisher(publisher),
	)

	var limiter *rest.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = rest.NewRateLimiter(rest.RateLimiterConfig{
			Rate:   rate.Limit(cfg.RateLimitRPS),
			Burst:  cfg.RateLimitBurst,
			Logger: log,
		})
		defer limiter.Stop()
	}

	deps := rest.RouterDeps{
		Service:           svc,
		Logger:            log,
		RateLimiter:       limiter,
		Health:            st.Ping,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RequestTimeout:    cfg.HTTPRequestTimeout,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = collector
		deps.MetricsHandler = metrics.Handler(reg)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           rest.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Error("http listen failed", slog.Any("err", err), slog.String("http_addr", cfg.HTTPAddr))
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- httpServer.Serve(httpLis)
	}()
	log.Info("http server started", slog.String("http_addr", httpLis.Addr().String()))

	var grpcServer *grpc.Server
	if cfg.GRPCEnabled {
		grpcServer = grpc.NewServer(
			grpc.UnaryInterceptor(defaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout)),
		)
		grpcTransport.RegisterSchedulingServiceServer(grpcServer, grpcTransport.NewSchedulingServer(svc, log))

		grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
			shutdown(log, httpServer, nil, cfg.ShutdownTimeout)
			return err
		}
		go func() {
			errCh <- grpcServer.Serve(grpcLis)
		}()
		log.Info("grpc server started", slog.String("grpc_addr", grpcLis.Addr().String()))
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
		return nil
	case err := <-errCh:
		shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
			return err
		}
		return nil
	}
}

func newPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		log.Info("event publishing disabled")
		return events.Nop{}, nil
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		return nil, err
	}
	log.Info("event publishing enabled", slog.String("exchange", cfg.AMQPExchange))
	return p, nil
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

// shutdown drains both servers in parallel. gRPC falls back to a hard stop
// when the timeout expires.
func shutdown(log *slog.Logger, httpServer *http.Server, grpcServer *grpc.Server, timeout time.Duration) {
	log.Info("shutting down", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
	}()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = httpServer.Close()
	}

	if grpcServer == nil {
		<-done
		log.Info("servers stopped")
		return
	}
	select {
	case <-done:
		log.Info("servers stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		grpcServer.Stop()
		<-done
	}
}
