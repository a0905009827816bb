package core

// pipeline.go builds an export archive from selected rows.
//
// Rows are processed one at a time in submission order:
//
//  1. resolve the filename and disambiguate it against the run's registry
//  2. look up the row cache, then the run's URL cache, then fetch
//  3. encode a non-empty payload and add it to the archive as a success
//  4. otherwise record a failure with the filename, URL, and reason
//  5. report progress
//
// With concurrency above one, distinct URLs are fetched in parallel before
// step 1 runs. The assembly pass is unchanged, so filenames, report order,
// and the one-request-per-URL guarantee match the sequential run.

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

// Exporter runs export invocations against a Fetcher.
type Exporter struct {
	fetcher     Fetcher
	rows        *RowCache
	names       NameOptions
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithRowCache enables the per-row result cache.
func WithRowCache(c *RowCache) ExporterOption {
	return func(e *Exporter) { e.rows = c }
}

// WithNameOptions sets the filename rules.
func WithNameOptions(o NameOptions) ExporterOption {
	return func(e *Exporter) { e.names = o }
}

// WithConcurrency sets how many distinct URLs are prefetched at once.
// Values below two keep the run fully sequential.
func WithConcurrency(n int) ExporterOption {
	return func(e *Exporter) { e.concurrency = n }
}

// WithLogger sets the logger for per-row outcomes.
func WithLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExporter returns an Exporter that fetches through f.
func NewExporter(f Fetcher, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		fetcher:     f,
		concurrency: 1,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NameOptions returns the filename rules used by the exporter.
func (e *Exporter) NameOptions() NameOptions {
	return e.names.withDefaults()
}

// Export processes req.Rows and returns the archive and its report.
//
// Row-level problems never fail the export; they are recorded in the report,
// which always accounts for every submitted row. An error is returned only
// when ctx is done between rows or the archive cannot be written.
func (e *Exporter) Export(ctx context.Context, req ExportRequest, progress ProgressFunc) (*ExportResult, error) {
	total := len(req.Rows)
	run := newURLCache()

	if e.concurrency > 1 {
		if err := e.prefetch(ctx, req, run); err != nil {
			return nil, fmt.Errorf("prefetch: %w", err)
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	registry := NewNameRegistry()
	report := ExportReport{
		Successes: make([]string, 0, total),
		Failures:  []ExportFailure{},
	}

	for i, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("export stopped after %d of %d rows: %w", i, total, err)
		}

		filename := registry.Allocate(ResolveName(row, req.NameFields, e.names))
		link := row.Get(req.URLField)

		res := e.resolve(ctx, req.SessionID, row, link, run)
		switch {
		case res.Failure != nil:
			report.Failures = append(report.Failures, ExportFailure{Filename: filename, URL: link, Reason: string(res.Failure.Reason)})
		case res.Payload.Empty():
			report.Failures = append(report.Failures, ExportFailure{Filename: filename, URL: link, Reason: string(ReasonEmpty)})
		default:
			data, err := EncodeXLSX(res.Payload)
			if err != nil {
				e.logger.Warn("encode failed", "filename", filename, "error", err)
				report.Failures = append(report.Failures, ExportFailure{Filename: filename, URL: link, Reason: string(ReasonEncode)})
				break
			}
			if err := e.writeEntry(zw, filename, data); err != nil {
				return nil, fmt.Errorf("write archive entry %s: %w", filename, err)
			}
			report.Successes = append(report.Successes, filename)
		}

		if progress != nil {
			progress(Progress{Current: i + 1, Total: total, Filename: filename})
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	e.logger.Info("export finished",
		"session_id", req.SessionID,
		"rows", total,
		"succeeded", len(report.Successes),
		"failed", len(report.Failures),
		"archive_bytes", buf.Len(),
	)

	return &ExportResult{Archive: buf.Bytes(), Report: report}, nil
}

// resolve returns the data for one row: row cache, then run cache, then the
// fetcher. Successes are written to both caches; failures only to the run cache.
func (e *Exporter) resolve(ctx context.Context, sessionID string, row Row, link string, run *urlCache) FetchResult {
	key := RowKey{SessionID: sessionID, Index: row.Index}
	useRowCache := e.rows != nil && sessionID != ""

	if useRowCache {
		if p, ok := e.rows.Get(key); ok {
			return FetchResult{Payload: p}
		}
	}

	res, ok := run.get(link)
	if !ok {
		res = e.fetcher.Fetch(ctx, link)
		run.put(link, res)
	}

	if useRowCache && res.OK() {
		e.rows.Put(key, res.Payload)
	}
	return res
}

// prefetch fills run with one result per distinct URL not already served
// by the row cache.
func (e *Exporter) prefetch(ctx context.Context, req ExportRequest, run *urlCache) error {
	seen := make(map[string]struct{})
	var links []string
	for _, row := range req.Rows {
		if e.rows != nil && req.SessionID != "" {
			if _, ok := e.rows.Get(RowKey{SessionID: req.SessionID, Index: row.Index}); ok {
				continue
			}
		}
		link := row.Get(req.URLField)
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, link := range links {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			run.put(link, e.fetcher.Fetch(ctx, link))
			return nil
		})
	}
	return g.Wait()
}

func (e *Exporter) writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: e.now(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
