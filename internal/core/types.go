package core

import (
	"context"
	"strings"
	"time"
)

// Row is one record of an uploaded row set. Rows are immutable after parsing.
type Row struct {
	Index  int               // 0-based position among the parsed data rows
	Line   int               // 1-based line in the source sheet, for operator messages
	Values map[string]string // Header name -> raw cell text
}

// Get returns the trimmed value of field, or "" when the field is absent.
func (r Row) Get(field string) string {
	return strings.TrimSpace(r.Values[field])
}

// Dataset is a parsed upload: the header row and every non-empty data row.
type Dataset struct {
	Source string
	Header []string
	Rows   []Row
}

// Payload is a tabular fetch result: ordered columns and records aligned to them.
type Payload struct {
	Columns []string
	Records [][]any
}

// Empty reports whether the payload has no records.
func (p *Payload) Empty() bool {
	return p == nil || len(p.Records) == 0
}

// FetchResult is either a payload or a failure. Exactly one field is set.
type FetchResult struct {
	Payload *Payload
	Failure *FetchFailure
}

// OK reports whether the fetch produced a payload.
func (r FetchResult) OK() bool {
	return r.Failure == nil && r.Payload != nil
}

// Fetcher retrieves a remote resource and interprets it as tabular data.
// Implementations must be total: every URL maps to a payload or a failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) FetchResult

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) FetchResult {
	return f(ctx, url)
}

// ExportRequest describes one export invocation.
type ExportRequest struct {
	SessionID  string   // Scope for the row result cache; empty disables it
	Rows       []Row    // Selected rows in submission order
	URLField   string   // Column holding the resource URL
	NameFields []string // Ordered columns used to build filenames
}

// ExportFailure records a row that produced no archive entry.
type ExportFailure struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Reason   string `json:"reason"`
}

// ExportReport lists committed filenames and failed rows, both in row order.
type ExportReport struct {
	Successes []string        `json:"successes"`
	Failures  []ExportFailure `json:"failures"`
}

// Total returns the number of rows accounted for by the report.
func (r ExportReport) Total() int {
	return len(r.Successes) + len(r.Failures)
}

// ExportResult is the outcome of a completed export.
type ExportResult struct {
	Archive []byte
	Report  ExportReport
}

// Progress reports how far an export has advanced.
type Progress struct {
	Current  int    // Rows processed so far
	Total    int    // Rows submitted
	Filename string // Filename of the row just processed
}

// Fraction returns Current/Total in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total)
}

// ProgressFunc is called after each row of an export is processed.
type ProgressFunc func(Progress)

// ExportPhase indicates the current stage of an asynchronous export run.
type ExportPhase string

const (
	PhaseQueued    ExportPhase = "queued"
	PhaseFetching  ExportPhase = "fetching"
	PhaseComplete  ExportPhase = "complete"
	PhaseFailed    ExportPhase = "failed"
	PhaseCancelled ExportPhase = "cancelled"
)

// ExportProgress is the state broadcast to progress subscribers.
type ExportProgress struct {
	ExportID  string      `json:"export_id"`
	SessionID string      `json:"session_id"`
	Phase     ExportPhase `json:"phase"`
	Current   int         `json:"current"`
	Total     int         `json:"total"`
	Filename  string      `json:"filename,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Percent returns the progress as a percentage (0-100).
func (p ExportProgress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Current * 100) / p.Total
}

// Done reports whether the run has reached a terminal phase.
func (p ExportProgress) Done() bool {
	switch p.Phase {
	case PhaseComplete, PhaseFailed, PhaseCancelled:
		return true
	}
	return false
}

// ExportRecord is the persisted summary of one finished export run.
// Intermediate fetch data is never stored.
type ExportRecord struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Source    string        `json:"source"`
	Profile   string        `json:"profile"`
	Phase     ExportPhase   `json:"phase"`
	Selected  int           `json:"selected"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	IPAddress string        `json:"ip_address,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
}

// HistoryStore persists export summaries.
type HistoryStore interface {
	Record(ctx context.Context, rec ExportRecord) error
	Recent(ctx context.Context, limit int) ([]ExportRecord, error)
}
