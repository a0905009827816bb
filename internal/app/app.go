// Package app wires configuration into a ready core.Service. The server and
// the CLI share it so both run the same fetcher, naming and history setup.
package app

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/rowfetch/internal/config"
	"github.com/JonMunkholm/rowfetch/internal/core"
	"github.com/JonMunkholm/rowfetch/internal/store"
)

// NewFetcher builds the HTTP fetcher described by cfg.Fetch.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *core.HTTPFetcher {
	return core.NewHTTPFetcher(
		core.WithFetchTimeout(cfg.Fetch.Timeout),
		core.WithMaxBodySize(cfg.Fetch.MaxBodySize),
		core.WithUserAgent(cfg.Fetch.UserAgent),
		core.WithFetchLogger(logger),
	)
}

// NameOptions returns the filename settings of cfg.Export.
func NameOptions(cfg *config.Config) core.NameOptions {
	return core.NameOptions{
		Separator:   cfg.Export.NameSeparator,
		DefaultBase: cfg.Export.DefaultName,
		MaxLength:   cfg.Export.NameMaxLength,
	}
}

// ServiceConfig maps cfg onto core.ServiceConfig with the given history store.
func ServiceConfig(cfg *config.Config, history core.HistoryStore, logger *slog.Logger) core.ServiceConfig {
	return core.ServiceConfig{
		Fetcher:              NewFetcher(cfg, logger),
		History:              history,
		Names:                NameOptions(cfg),
		ArchiveName:          cfg.Export.ArchiveName,
		Concurrency:          cfg.Fetch.Concurrency,
		MaxConcurrentExports: cfg.Export.MaxConcurrent,
		MaxWait:              cfg.Export.MaxWaitTime,
		ExportTimeout:        cfg.Export.Timeout,
		SessionTTL:           cfg.Session.TTL,
		Logger:               logger,
	}
}

// OpenHistory returns the PostgreSQL history store when a database is
// configured and the in-memory store otherwise. The returned close function
// releases the connection pool and is always safe to call.
func OpenHistory(ctx context.Context, cfg *config.Config) (core.HistoryStore, func(), error) {
	if !cfg.Database.Enabled() {
		slog.Info("no database configured, keeping export history in memory")
		return store.NewMemory(0), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	slog.Info("connected to database", "max_conns", cfg.Database.MaxConns)
	return pg, pool.Close, nil
}
