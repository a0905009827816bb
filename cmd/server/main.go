package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/rowfetch/internal/app"
	"github.com/JonMunkholm/rowfetch/internal/config"
	"github.com/JonMunkholm/rowfetch/internal/core"
	"github.com/JonMunkholm/rowfetch/internal/logging"
	_ "github.com/JonMunkholm/rowfetch/internal/profiles" // Register all naming profiles
	"github.com/JonMunkholm/rowfetch/internal/web"
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
		"history_db", cfg.Database.Enabled(),
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"fetch_timeout", cfg.Fetch.Timeout.String(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	history, closeHistory, err := app.OpenHistory(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open export history", "error", err)
		os.Exit(1)
	}
	defer closeHistory()

	service := core.NewService(app.ServiceConfig(cfg, history, slog.Default()))

	profiles := core.Profiles()
	slog.Info("profiles registered", "count", len(profiles))
	for _, p := range profiles {
		slog.Debug("profile", "key", p.Key, "custom", p.Custom)
	}

	server := web.NewServer(service, cfg)

	// Background jobs stop when jobCtx is cancelled.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSessionJanitor(jobCtx, cfg.Session.SweepInterval)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running exports finish so their history is recorded.
		limiter := service.Limiter()
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for exports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("exports did not complete in time", "error", err)
			} else {
				slog.Info("all exports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
