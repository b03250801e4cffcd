package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/dataviewer/internal/config"
	"github.com/JonMunkholm/dataviewer/internal/core"
	"github.com/JonMunkholm/dataviewer/internal/format"
	"github.com/JonMunkholm/dataviewer/internal/logging"
	"github.com/JonMunkholm/dataviewer/internal/metrics"
	"github.com/JonMunkholm/dataviewer/internal/source"
	"github.com/JonMunkholm/dataviewer/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database_enabled", cfg.Database.Enabled(),
		"max_sessions", cfg.Session.MaxSessions,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		pool, err = connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	sourceOpts := source.Options{
		IndexColumns:   cfg.Preload.IndexColumns,
		LevelSeparator: cfg.Preload.LevelSeparator,
		MaxRows:        cfg.Upload.MaxRows,
	}
	limiter := core.NewLoadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)

	catalog := core.NewCatalog()
	if err := catalog.Preload(ctx, preloadSources(cfg, pool, sourceOpts), limiter); err != nil {
		slog.Error("failed to preload datasets", "error", err)
		os.Exit(1)
	}
	slog.Info("datasets registered", "count", catalog.Len())

	service := core.NewService(catalog, core.Options{
		MaxSessions:   cfg.Session.MaxSessions,
		BufferSize:    cfg.Grid.BufferSize,
		FilterRow:     cfg.Grid.FilterRow,
		LoadTimeout:   cfg.Upload.Timeout,
		SourceOptions: sourceOpts,
		Formatter:     format.New(format.WithNARep(cfg.Grid.NARep), format.WithLocale(cfg.Grid.Locale)),
		Limiter:       limiter,
		Metrics:       m,
	})

	server := web.NewServer(service, cfg, web.WithMetrics(m, reg))

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSessionSweeper(jobCtx, core.SweepConfig{
		IdleTimeout: cfg.Session.IdleTimeout,
		Interval:    cfg.Session.SweepInterval,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if st := limiter.Status(); st.Active > 0 {
			slog.Info("waiting for loads to complete", "active", st.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("loads did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// preloadSources lists the configured files, then the configured tables when
// a pool is open.
func preloadSources(cfg *config.Config, pool *pgxpool.Pool, opts source.Options) []core.Source {
	var sources []core.Source
	for _, path := range cfg.Preload.Files {
		sources = append(sources, core.FileSource(path, opts))
	}
	if pool != nil {
		for _, table := range cfg.Preload.Tables {
			sources = append(sources, core.TableSource(pool, table, cfg.Preload.IndexColumns, cfg.Database.QueryRowLimit))
		}
	}
	return sources
}
