// Package main provides the entry point for the tokend server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sipico/tokend/internal/admin"
	"github.com/sipico/tokend/internal/auth"
	"github.com/sipico/tokend/internal/catalog"
	"github.com/sipico/tokend/internal/config"
	"github.com/sipico/tokend/internal/logging"
	"github.com/sipico/tokend/internal/metrics"
	"github.com/sipico/tokend/internal/middleware"
	"github.com/sipico/tokend/internal/storage"
)

const (
	version               = "0.1.0"
	serverShutdownTimeout = 30 * time.Second
	healthCheckURL        = "http://localhost:8181/health"
)

// components holds everything run() starts and later shuts down.
type components struct {
	logger        *slog.Logger
	logLevel      *slog.LevelVar
	store         *storage.SQLiteStorage
	authority     *auth.Authority
	registry      *prometheus.Registry
	adminRouter   chi.Router
	catalogRouter http.Handler
	mainRouter    chi.Router
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthCheck())
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// run loads configuration, starts both listeners and blocks until shutdown.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.store.Close(); err != nil {
			c.logger.Error("failed to close storage", "error", err)
		}
	}()

	c.logger.Info("tokend starting",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsListenAddr,
		"auth_enabled", cfg.AuthEnabled,
	)
	if !cfg.AuthEnabled {
		c.logger.Warn("authentication disabled, token management endpoints answer 405")
	}

	metricsServer := createMetricsServer(cfg, c.registry)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		//nolint:errcheck // best effort on the way out
		metricsServer.Shutdown(ctx)
	}()

	return startServerAndWaitForShutdown(c.logger, createServer(cfg, c.mainRouter))
}

// initializeComponents validates cfg and wires storage, the Authority and the routers.
func initializeComponents(cfg *config.Config) (*components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := admin.ParseLevel(cfg.LogLevel)
	logLevel := new(slog.LevelVar)
	logLevel.Set(level)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Init(registry, version); err != nil {
		return nil, fmt.Errorf("metrics initialization failed: %w", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}

	authority := auth.NewAuthority(store, auth.WithLogger(logger))

	adminHandler := admin.NewHandler(store, authority, cfg.AuthEnabled, logLevel, logger)
	adminRouter := adminHandler.NewRouter()

	catalogRouter := catalog.NewRouter(
		catalog.NewHandler(store, logger),
		auth.Middleware(authority, cfg.AuthEnabled, logger),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.HTTPLogging(logger, logging.DefaultAllowlist))
	r.Use(metrics.Middleware)
	r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))

	r.Handle(catalog.PathDatabase, catalogRouter)
	r.Mount("/", adminRouter)

	return &components{
		logger:        logger,
		logLevel:      logLevel,
		store:         store,
		authority:     authority,
		registry:      registry,
		adminRouter:   adminRouter,
		catalogRouter: catalogRouter,
		mainRouter:    r,
	}, nil
}

// createServer builds the public HTTP server.
func createServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// createMetricsServer builds the Prometheus listener, kept off the public address.
func createMetricsServer(cfg *config.Config, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	return &http.Server{
		Addr:              cfg.MetricsListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// startServerAndWaitForShutdown serves until SIGINT/SIGTERM, then drains connections.
func startServerAndWaitForShutdown(logger *slog.Logger, server *http.Server) error {
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server shut down gracefully")
	return nil
}

// runHealthCheck probes the local server; used as the container HEALTHCHECK.
func runHealthCheck() int {
	return doHealthCheck(healthCheckURL)
}

// doHealthCheck returns 0 if url answers 200, 1 otherwise.
func doHealthCheck(url string) int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url) //nolint:gosec,noctx // fixed local URL
	if err != nil {
		return 1
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
