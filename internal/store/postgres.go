package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/rowfetch/internal/config"
	"github.com/JonMunkholm/rowfetch/internal/core"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS export_history (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	profile     TEXT NOT NULL DEFAULT '',
	phase       TEXT NOT NULL,
	selected    INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	ip_address  TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS export_history_started_at_idx ON export_history (started_at DESC);
`

// Postgres stores export history in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ core.HistoryStore = (*Postgres)(nil)

// NewPostgres returns a store backed by pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens and verifies a connection pool using cfg.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the history table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create export_history: %w", err)
	}
	return nil
}

// Record inserts rec. Recording the same export twice keeps the first row.
func (p *Postgres) Record(ctx context.Context, rec core.ExportRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO export_history (
			id, session_id, source, profile, phase, selected, succeeded, failed,
			error, started_at, duration_ms, ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.SessionID, rec.Source, rec.Profile, string(rec.Phase),
		rec.Selected, rec.Succeeded, rec.Failed, rec.Error,
		rec.StartedAt, rec.Duration.Milliseconds(), rec.IPAddress, rec.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert export history: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]core.ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, session_id, source, profile, phase, selected, succeeded, failed,
		       error, started_at, duration_ms, ip_address, user_agent
		FROM export_history
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query export history: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ExportRecord, error) {
		var (
			rec        core.ExportRecord
			phase      string
			durationMS int64
		)
		err := row.Scan(
			&rec.ID, &rec.SessionID, &rec.Source, &rec.Profile, &phase,
			&rec.Selected, &rec.Succeeded, &rec.Failed, &rec.Error,
			&rec.StartedAt, &durationMS, &rec.IPAddress, &rec.UserAgent,
		)
		rec.Phase = core.ExportPhase(phase)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan export history: %w", err)
	}
	return records, nil
}
