// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the progressd service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kelvinho/progressd/internal/api"
	"github.com/kelvinho/progressd/internal/clock/system"
	"github.com/kelvinho/progressd/internal/config"
	idgen "github.com/kelvinho/progressd/internal/id/uuid"
	"github.com/kelvinho/progressd/internal/logging"
	"github.com/kelvinho/progressd/internal/metrics"
	"github.com/kelvinho/progressd/internal/progress"
	"github.com/kelvinho/progressd/internal/progress/sinks"
	"github.com/kelvinho/progressd/internal/registry"
)

// App holds the shared, long-lived services: logger, event hub, tracker
// registry, and the HTTP server. It is built once at startup and torn down
// by Run or Close.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	hub      *progress.Hub
	registry *registry.Registry
	server   *api.Server
}

// Build creates the application's dependencies. It fails fast if any service
// cannot be initialized.
func Build(cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	if err := progress.SetTolerance(cfg.Tracker.Tolerance); err != nil {
		return nil, fmt.Errorf("apply tolerance: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := sinks.NewPrometheusSink(promReg)
	if err != nil {
		return nil, fmt.Errorf("prometheus sink init failed: %w", err)
	}

	hub := progress.NewHub(progress.HubConfig{
		BufferSize:     cfg.Hub.BufferSize,
		MaxBatchEvents: cfg.Hub.MaxBatchEvents,
		MaxBatchWait:   cfg.MaxBatchWait(),
		Logger:         logger,
	}, sinks.NewLogSink(logger.Named("events")), promSink)

	httpMetrics, err := metrics.NewHTTP(promReg)
	if err != nil {
		return nil, fmt.Errorf("http metrics init failed: %w", err)
	}

	reg := registry.New(idgen.New(), system.New(), hub)
	server := api.NewServer(reg, cfg, logger, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}), httpMetrics)

	return &App{
		cfg:      cfg,
		logger:   logger,
		hub:      hub,
		registry: reg,
		server:   server,
	}, nil
}

// Logger exposes the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Registry exposes the tracker registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Hub exposes the event hub so auxiliary trackers can emit into it.
func (a *App) Hub() *progress.Hub {
	return a.hub
}

// Run starts the HTTP server and blocks until the context is canceled or a
// termination signal arrives, then shuts everything down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	closeErr := a.Close(context.Background())
	if err != nil {
		return err
	}
	return closeErr
}

// Close flushes the event hub and the logger.
func (a *App) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.hub.Close(shutdownCtx); err != nil {
		a.logger.Warn("progress hub close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
	a.logger.Info("shutdown complete")
	return nil
}
