package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/rowfetch/internal/config"
	"github.com/JonMunkholm/rowfetch/internal/core"
)

// TestPostgres_RoundTrip needs a database; set ROWFETCH_TEST_DATABASE_URL to run it.
func TestPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("ROWFETCH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ROWFETCH_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, config.DatabaseConfig{URL: dsn, MaxConns: 2, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Minute})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer pool.Close()

	pg := NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	rec := core.ExportRecord{
		ID:        uuid.New().String(),
		SessionID: uuid.New().String(),
		Source:    "rows.xlsx",
		Profile:   "bps",
		Phase:     core.PhaseComplete,
		Selected:  3,
		Succeeded: 2,
		Failed:    1,
		StartedAt: time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond),
		Duration:  1500 * time.Millisecond,
	}
	if err := pg.Record(ctx, rec); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := pg.Record(ctx, rec); err != nil {
		t.Fatalf("duplicate Record() error = %v", err)
	}

	got, err := pg.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != rec.ID || got[0].Duration != rec.Duration || got[0].Phase != core.PhaseComplete {
		t.Errorf("Recent() = %+v, want %+v", got, rec)
	}
}
