package app

import (
	"context"
	"testing"
	"time"

	"github.com/JonMunkholm/rowfetch/internal/config"
	"github.com/JonMunkholm/rowfetch/internal/logging"
	"github.com/JonMunkholm/rowfetch/internal/store"
)

func TestServiceConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Export.NameSeparator = "-"
	cfg.Export.ArchiveName = "out.zip"
	cfg.Fetch.Concurrency = 4
	cfg.Session.TTL = time.Hour

	sc := ServiceConfig(cfg, nil, logging.Discard())

	if sc.Names.Separator != "-" || sc.Names.DefaultBase != "untitled" || sc.Names.MaxLength != 100 {
		t.Errorf("Names = %+v", sc.Names)
	}
	if sc.ArchiveName != "out.zip" || sc.Concurrency != 4 || sc.SessionTTL != time.Hour {
		t.Errorf("ServiceConfig = %+v", sc)
	}
	if sc.MaxConcurrentExports != 2 || sc.MaxWait != 10*time.Second || sc.ExportTimeout != 30*time.Minute {
		t.Errorf("export limits = %d %v %v", sc.MaxConcurrentExports, sc.MaxWait, sc.ExportTimeout)
	}
	if sc.Fetcher == nil {
		t.Error("Fetcher is nil")
	}
}

func TestOpenHistory_MemoryWithoutDatabase(t *testing.T) {
	cfg := config.Defaults()

	history, closeFn, err := OpenHistory(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenHistory() error = %v", err)
	}
	defer closeFn()

	if _, ok := history.(*store.Memory); !ok {
		t.Errorf("history = %T, want *store.Memory", history)
	}
}
