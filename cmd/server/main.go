package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/gridkit/internal/config"
	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/JonMunkholm/gridkit/internal/logging"
	"github.com/JonMunkholm/gridkit/internal/options"
	"github.com/JonMunkholm/gridkit/internal/permission"
	"github.com/JonMunkholm/gridkit/internal/store"
	"github.com/JonMunkholm/gridkit/internal/web"
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
		"schema_dir", cfg.Schema.Dir,
		"postgres", cfg.Database.UsePostgres(),
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	registry, err := core.LoadRegistry(cfg.Schema.Dir)
	if err != nil {
		slog.Error("failed to load schemas", "dir", cfg.Schema.Dir, "error", err)
		os.Exit(1)
	}
	slog.Info("entities registered", "count", registry.Len(), "names", registry.Names())

	var perms *permission.Config
	if cfg.Schema.PermissionsFile != "" {
		perms, err = permission.Load(cfg.Schema.PermissionsFile)
		if err != nil {
			slog.Error("failed to load permissions", "file", cfg.Schema.PermissionsFile, "error", err)
			os.Exit(1)
		}
		slog.Info("permissions loaded", "resources", perms.Resources())
	} else {
		slog.Warn("no permissions file configured, every role may do everything")
	}

	var st store.Store
	if cfg.Database.UsePostgres() {
		pg, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
	} else {
		slog.Info("no database configured, imported records are kept in memory")
		st = store.NewMemory()
	}

	fetcher := options.NewFetcher(&http.Client{Timeout: cfg.Options.Timeout})
	fetcher.MaxBodyBytes = cfg.Options.MaxBodyBytes
	fetcher.Concurrency = cfg.Options.Concurrency

	service, err := core.NewService(core.Deps{
		Registry:    registry,
		Store:       st,
		Permissions: perms,
		Fetcher:     fetcher,
	}, cfg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown. Start returns as soon as the listener closes, so
	// main waits on done for running imports to drain.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
