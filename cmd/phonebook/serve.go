package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/kvetinski/phonebook/config"
	"github.com/kvetinski/phonebook/internal/adapters/grpcapi"
	"github.com/kvetinski/phonebook/internal/adapters/httpapi"
	"github.com/kvetinski/phonebook/internal/adapters/memory"
	"github.com/kvetinski/phonebook/internal/adapters/repository"
	"github.com/kvetinski/phonebook/internal/logging"
	contactsvc "github.com/kvetinski/phonebook/internal/service/contact"
	"github.com/kvetinski/phonebook/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP, gRPC and metrics servers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, logCloser := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting phonebook service",
		"backend", cfg.StoreBackend,
		"http_addr", cfg.HTTPAddr,
		"grpc_addr", cfg.GRPCAddr,
		"metrics_addr", cfg.MetricsAddr,
	)

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.TracingServiceName,
		ServiceVersion: rootCmd.Version,
		StoreBackend:   cfg.StoreBackend,
		OTLPEndpoint:   cfg.TracingOTLPEndpoint,
		Insecure:       cfg.TracingOTLPInsecure,
		SampleRatio:    cfg.TracingSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("shutdown tracing failed", "error", err)
		}
	}()

	metrics := telemetry.NewMetrics(nil)

	store, closeStore, err := openStore(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	svc := contactsvc.New(store)
	if err = telemetry.RegisterContactsGauge(func() (int, error) { return svc.Count(context.Background()) }, nil); err != nil {
		return fmt.Errorf("register contacts gauge: %w", err)
	}

	if cfg.StoreBackend == config.BackendMemory && cfg.SeedContacts {
		if err = svc.Seed(ctx, demoContacts...); err != nil {
			return fmt.Errorf("seed contacts: %w", err)
		}
		logger.Info("seeded demo contacts", "count", len(demoContacts))
	}

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewServer(svc, logger, httpapi.Options{
			Prefix:  cfg.APIPrefix,
			Backend: cfg.StoreBackend,
			Metrics: metrics,
		}).Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	grpcSrv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(grpcapi.UnaryObserveInterceptor(metrics, logger)),
	)
	grpcapi.RegisterContactServiceServer(grpcSrv, grpcapi.NewServer(svc, logger))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	defer lis.Close()

	errCh := make(chan error, 3)

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	go func() {
		logger.Info("grpc server listening", "addr", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	httpErrCh := make(chan error, 2)
	for name, srv := range map[string]*http.Server{"http": httpSrv, "metrics": metricsSrv} {
		go func() {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				httpErrCh <- fmt.Errorf("shutdown %s server: %w", name, err)
				return
			}
			httpErrCh <- nil
		}()
	}

	grpcDone := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(grpcDone)
	}()

	select {
	case <-grpcDone:
		logger.Info("grpc server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("grpc graceful shutdown timed out, forcing stop")
		grpcSrv.Stop()
	}

	var shutdownErr error
	for range 2 {
		shutdownErr = errors.Join(shutdownErr, <-httpErrCh)
	}
	if shutdownErr != nil {
		return shutdownErr
	}

	logger.Info("shutdown complete")
	return nil
}

// openStore picks the backend named by cfg. The closer releases the
// database connection, if any.
func openStore(ctx context.Context, cfg config.Config, metrics *telemetry.Metrics, logger *slog.Logger) (contactsvc.Store, io.Closer, error) {
	driver, dsn, ok := sqlTarget(cfg)
	if !ok {
		logger.Info("using in-memory store", "id_base", cfg.IDBase)
		return memory.New(cfg.IDBase), nopCloser{}, nil
	}

	db, err := repository.Open(ctx, driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database connected", "driver", driver)

	if err = repository.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if err = telemetry.RegisterDBPoolMetrics(db.DB, nil); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("register db pool metrics: %w", err)
	}

	return repository.NewWithMetrics(db, metrics), db, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
