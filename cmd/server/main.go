// Package main is the entry point for the LMT kanban view: it polls the
// analytics backend on a fixed period and on the hourly batch boundary, and
// serves the overview and detail view models over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aristath/lmt-kanban/internal/clients/analytics"
	"github.com/aristath/lmt-kanban/internal/config"
	"github.com/aristath/lmt-kanban/internal/events"
	"github.com/aristath/lmt-kanban/internal/modules/dashboard"
	"github.com/aristath/lmt-kanban/internal/scheduler"
	"github.com/aristath/lmt-kanban/internal/server"
	"github.com/aristath/lmt-kanban/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("analytics", cfg.AnalyticsBaseURL).
		Dur("poll_interval", cfg.PollInterval).
		Str("batch_timezone", cfg.BatchTimezone).
		Msg("Starting LMT kanban")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	bus := events.NewBus()
	eventManager := events.NewManager(bus, log)

	client := analytics.NewClient(&analytics.Config{
		BaseURL: cfg.AnalyticsBaseURL,
		Timeout: cfg.AnalyticsTimeout,
		Debug:   cfg.DevMode,
	}, log)

	metrics := dashboard.NewMetrics(registry)
	view := dashboard.NewService(client, dashboard.Options{
		Emitter:          eventManager,
		Metrics:          metrics,
		DisplayLocations: cfg.DisplayLocations(),
		TrendLimit:       analytics.DefaultTrendLimit,
	}, log)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.PollInterval = cfg.PollInterval
	schedCfg.Location = cfg.BatchLocation()
	schedCfg.Hooks = []scheduler.Hook{metrics.SchedulerHook}

	refreshScheduler, err := scheduler.New(view, schedCfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create refresh scheduler")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view.AttachScheduler(ctx, refreshScheduler)
	refreshScheduler.Start(ctx)

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Dashboard: view,
		Bus:       bus,
		Scheduler: refreshScheduler,
		Gatherer:  registry,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	refreshScheduler.Stop()
	cancel()
	refreshScheduler.Wait()
	log.Info().Msg("Refresh scheduler stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
