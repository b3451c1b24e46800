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

	"github.com/JonMunkholm/inputsheet/internal/auth"
	"github.com/JonMunkholm/inputsheet/internal/config"
	"github.com/JonMunkholm/inputsheet/internal/core"
	"github.com/JonMunkholm/inputsheet/internal/importer"
	"github.com/JonMunkholm/inputsheet/internal/logging"
	"github.com/JonMunkholm/inputsheet/internal/report"
	"github.com/JonMunkholm/inputsheet/internal/store"
	"github.com/JonMunkholm/inputsheet/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
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
		"storage_driver", cfg.Storage.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	for _, dir := range []string{cfg.Upload.TempDir, cfg.Report.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	admin, err := core.BootstrapAdmin(cfg.Auth.BootstrapPassword)
	if err != nil {
		return err
	}
	stores, err := store.Open(ctx, backend, admin)
	if err != nil {
		return err
	}

	loc, err := cfg.Report.Location()
	if err != nil {
		return err
	}

	service, err := core.NewService(core.Deps{
		Schemas:  stores.Schemas,
		Records:  stores.Records,
		Users:    stores.Users,
		Renderer: report.NewRenderer(cfg.Report.FontPath, loc),
		Importer: importer.Adapter{},
	}, core.Options{
		OutputDir:     cfg.Report.OutputDir,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	})
	if err != nil {
		return err
	}

	sessions := auth.NewSessionStore(cfg.Auth.SessionTTL)
	server := web.NewServer(service, sessions, cfg, stores.Driver())

	// Background maintenance stops with jobCtx.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	go service.StartMaintenanceScheduler(jobCtx, core.MaintenanceConfig{
		ReportRetention: cfg.Report.Retention,
		CheckInterval:   cfg.Report.CleanupInterval,
		Sessions:        sessions,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for jobs to complete", "active", status.Active)
			if err := service.WaitForJobs(shutdownCtx); err != nil {
				slog.Warn("jobs did not complete in time", "error", err)
			} else {
				slog.Info("all jobs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// openBackend returns the configured document backend and a close func.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	if strings.ToLower(cfg.Storage.Driver) != "postgres" {
		backend, err := store.NewFileBackend(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using file storage", "dir", cfg.Storage.Dir)
		return backend, func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	backend, err := store.NewPostgresBackend(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return backend, pool.Close, nil
}
