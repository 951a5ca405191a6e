package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"better-pypi-stats/internal/cache"
	"better-pypi-stats/internal/config"
	"better-pypi-stats/internal/controller"
	"better-pypi-stats/internal/db"
	httpserver "better-pypi-stats/internal/http"
	"better-pypi-stats/internal/model"
	"better-pypi-stats/internal/observability"
	"better-pypi-stats/internal/repository"
	"better-pypi-stats/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	observability.SetupLogger(cfg.IsDev(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	var (
		repo   repository.DownloadRepository
		pinger controller.Pinger
	)

	switch cfg.Store {
	case config.StoreMemory:
		events, err := repository.LoadFixture(cfg.FixturePath)
		if err != nil {
			slog.Error("load fixture", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("serving downloads from fixture", slog.String("path", cfg.FixturePath), slog.Int("events", len(events)))
		repo = repository.NewMemoryRepository(events)
	default:
		conn, err := db.NewConnection(ctx, cfg.ClickHouse)
		if err != nil {
			slog.Error("connect db", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer conn.Close()

		if cfg.ClickHouse.BootstrapSchema {
			if err := db.EnsureSchema(ctx, conn); err != nil {
				slog.Error("bootstrap schema", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}

		repo = repository.NewDownloadRepository(conn, cfg.QueryTimeout)
		repo = repository.NewBreakerRepository(repo, repository.BreakerSettings{
			Failures: cfg.ClickHouse.BreakerFailures,
			Timeout:  cfg.ClickHouse.BreakerTimeout,
		}, metrics)
		pinger = conn
	}

	repo = repository.NewInstrumentedRepository(repo, metrics)
	results := cache.NewMemo[model.AggregatedResult]("aggregate", cfg.CacheSize, cfg.CacheTTL, metrics)
	downloadService := service.NewDownloadService(repo, results, cfg.DefaultTable)
	downloadController := controller.NewDownloadController(downloadService)
	healthController := controller.NewHealthController(pinger, cfg.ClickHouse.DialTimeout)

	server := httpserver.NewServer(cfg, downloadController, healthController, registry)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")
		if err := server.Shutdown(shutdownTimeout); err != nil {
			slog.Error("shutdown", slog.String("error", err.Error()))
		}
	}()

	slog.Info("starting server", slog.String("addr", cfg.HTTPPort))
	if err := server.Listen(cfg.HTTPPort); err != nil {
		slog.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
