package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CheckTimeout is the maximum duration for a single-row check or download.
var CheckTimeout = 2 * time.Minute

// PreviewRecords is the number of records returned by CheckRow.
const PreviewRecords = 50

// ServiceConfig wires the Service. Zero values select defaults.
type ServiceConfig struct {
	Fetcher              Fetcher      // Remote fetcher; defaults to NewHTTPFetcher()
	History              HistoryStore // Optional export history
	Names                NameOptions
	ArchiveName          string
	Concurrency          int // Distinct URLs prefetched in parallel per export
	MaxConcurrentExports int
	MaxWait              time.Duration
	ExportTimeout        time.Duration
	SessionTTL           time.Duration
	Logger               *slog.Logger
}

// Default service settings.
const (
	DefaultArchiveName   = "export_archive.zip"
	DefaultExportTimeout = 30 * time.Minute
	DefaultSessionTTL    = 2 * time.Hour
)

// Service owns upload sessions, export runs, and the fetch caches shared by
// both. All state is in memory; only export summaries reach the HistoryStore.
type Service struct {
	memo     *MemoFetcher
	rowCache *RowCache
	exporter *Exporter
	limiter  *ExportLimiter
	history  HistoryStore
	logger   *slog.Logger

	archiveName   string
	exportTimeout time.Duration
	sessionTTL    time.Duration
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	exports  map[string]*activeExport
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(WithFetchLogger(logger))
	}
	if cfg.ArchiveName == "" {
		cfg.ArchiveName = DefaultArchiveName
	}
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = DefaultExportTimeout
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	memo := NewMemoFetcher(fetcher)
	rows := NewRowCache()

	return &Service{
		memo:     memo,
		rowCache: rows,
		exporter: NewExporter(memo,
			WithRowCache(rows),
			WithNameOptions(cfg.Names),
			WithConcurrency(cfg.Concurrency),
			WithLogger(logger),
		),
		limiter:       NewExportLimiter(cfg.MaxConcurrentExports, cfg.MaxWait),
		history:       cfg.History,
		logger:        logger,
		archiveName:   cfg.ArchiveName,
		exportTimeout: cfg.ExportTimeout,
		sessionTTL:    cfg.SessionTTL,
		now:           time.Now,
		sessions:      make(map[string]*Session),
		exports:       make(map[string]*activeExport),
	}
}

// ArchiveName returns the download name for export archives.
func (s *Service) ArchiveName() string {
	return s.archiveName
}

// Limiter returns the export concurrency limiter.
func (s *Service) Limiter() *ExportLimiter {
	return s.limiter
}

// ----------------------------------------------------------------------------
// Sessions
// ----------------------------------------------------------------------------

// Session is one uploaded row list bound to a naming profile. Only usable rows
// can be selected and exported.
type Session struct {
	ID        string
	Source    string
	Header    []string
	Binding   Binding
	Rows      []Row // Usable rows in upload order
	Problems  []RowProblem
	TotalRows int
	CreatedAt time.Time

	mu       sync.Mutex
	byIndex  map[int]int // Row.Index -> position in Rows
	selected map[int]bool
	lastSeen time.Time
}

// UploadRequest describes a row list to open as a session.
type UploadRequest struct {
	FileName    string
	Data        io.Reader
	Profile     string
	URLColumn   string   // custom profiles only
	NameColumns []string // custom profiles only
}

// SessionSummary is the operator-facing view of a session.
type SessionSummary struct {
	ID         string           `json:"id"`
	Source     string           `json:"source"`
	Profile    string           `json:"profile"`
	Header     []string         `json:"header"`
	URLField   string           `json:"url_field"`
	NameFields []string         `json:"name_fields"`
	TotalRows  int              `json:"total_rows"`
	UsableRows int              `json:"usable_rows"`
	Selected   int              `json:"selected"`
	Problems   []RowProblemView `json:"problems"`
	CreatedAt  time.Time        `json:"created_at"`
}

// RowProblemView describes an unusable row.
type RowProblemView struct {
	Line    int      `json:"line"`
	Missing []string `json:"missing"`
}

// RowView is one usable row as listed on the dashboard.
type RowView struct {
	Index    int               `json:"index"`
	Line     int               `json:"line"`
	Filename string            `json:"filename"`
	URL      string            `json:"url"`
	Names    map[string]string `json:"names"`
	Selected bool              `json:"selected"`
	Cached   bool              `json:"cached"`
}

// CreateSession parses req.Data, binds the profile to its header, and
// partitions the rows. A header missing profile columns fails with
// *MissingColumnsError; a file with no usable row fails with ErrAllRowsInvalid.
func (s *Service) CreateSession(ctx context.Context, req UploadRequest) (SessionSummary, error) {
	profile, err := LookupProfile(req.Profile)
	if err != nil {
		return SessionSummary{}, err
	}

	ds, err := ReadDataset(req.FileName, req.Data)
	if err != nil {
		return SessionSummary{}, err
	}

	binding, err := profile.Bind(ds.Header, req.URLColumn, req.NameColumns)
	if err != nil {
		return SessionSummary{}, err
	}

	usable, problems, err := ValidateRows(ds.Rows, binding.Required)
	if err != nil {
		return SessionSummary{}, err
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		Source:    ds.Source,
		Header:    ds.Header,
		Binding:   binding,
		Rows:      usable,
		Problems:  problems,
		TotalRows: len(ds.Rows),
		CreatedAt: now,
		byIndex:   make(map[int]int, len(usable)),
		selected:  make(map[int]bool),
		lastSeen:  now,
	}
	for i, r := range usable {
		sess.byIndex[r.Index] = i
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session created",
		"session_id", sess.ID,
		"source", sess.Source,
		"profile", profile.Key,
		"rows", sess.TotalRows,
		"usable", len(usable),
		"unusable", len(problems),
	)

	return sess.summary(), nil
}

// getSession returns the session and marks it as recently used.
func (s *Service) getSession(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	sess.lastSeen = s.now()
	sess.mu.Unlock()
	return sess, nil
}

// Session returns the summary of a session.
func (s *Service) Session(id string) (SessionSummary, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return SessionSummary{}, err
	}
	return sess.summary(), nil
}

// SessionRows lists the usable rows of a session in upload order.
func (s *Service) SessionRows(id string) ([]RowView, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return nil, err
	}

	names := s.exporter.NameOptions()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	views := make([]RowView, len(sess.Rows))
	for i, r := range sess.Rows {
		_, cached := s.rowCache.Get(RowKey{SessionID: sess.ID, Index: r.Index})
		nv := make(map[string]string, len(sess.Binding.NameFields))
		for _, f := range sess.Binding.NameFields {
			nv[f] = r.Get(f)
		}
		views[i] = RowView{
			Index:    r.Index,
			Line:     r.Line,
			Filename: ResolveName(r, sess.Binding.NameFields, names),
			URL:      r.Get(sess.Binding.URLField),
			Names:    nv,
			Selected: sess.selected[r.Index],
			Cached:   cached,
		}
	}
	return views, nil
}

// SetSelected marks the given rows as selected or not and returns the new
// selection size. Unknown or unusable indices fail with ErrRowNotFound and
// leave the selection unchanged.
func (s *Service) SetSelected(id string, indices []int, selected bool) (int, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return 0, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	for _, idx := range indices {
		if _, ok := sess.byIndex[idx]; !ok {
			return len(sess.selected), fmt.Errorf("%w: %d", ErrRowNotFound, idx)
		}
	}
	for _, idx := range indices {
		if selected {
			sess.selected[idx] = true
		} else {
			delete(sess.selected, idx)
		}
	}
	return len(sess.selected), nil
}

// SelectAll selects every usable row, or clears the selection.
func (s *Service) SelectAll(id string, selected bool) (int, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return 0, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.selected = make(map[int]bool)
	if selected {
		for _, r := range sess.Rows {
			sess.selected[r.Index] = true
		}
	}
	return len(sess.selected), nil
}

// DeleteSession discards a session and its cached row results.
func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.rowCache.DropSession(id)
	return nil
}

// ExpireSessions removes sessions idle for longer than the session TTL and
// returns how many were removed.
func (s *Service) ExpireSessions() int {
	cutoff := s.now().Add(-s.sessionTTL)

	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.rowCache.DropSession(id)
	}
	return len(expired)
}

func (sess *Session) summary() SessionSummary {
	sess.mu.Lock()
	selected := len(sess.selected)
	sess.mu.Unlock()

	problems := make([]RowProblemView, len(sess.Problems))
	for i, p := range sess.Problems {
		problems[i] = RowProblemView{Line: p.Row.Line, Missing: p.Missing}
	}

	return SessionSummary{
		ID:         sess.ID,
		Source:     sess.Source,
		Profile:    sess.Binding.Profile,
		Header:     sess.Header,
		URLField:   sess.Binding.URLField,
		NameFields: sess.Binding.NameFields,
		TotalRows:  sess.TotalRows,
		UsableRows: len(sess.Rows),
		Selected:   selected,
		Problems:   problems,
		CreatedAt:  sess.CreatedAt,
	}
}

// selectedRows returns the selected rows in upload order.
func (sess *Session) selectedRows() []Row {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	rows := make([]Row, 0, len(sess.selected))
	for _, r := range sess.Rows {
		if sess.selected[r.Index] {
			rows = append(rows, r)
		}
	}
	return rows
}

// pickRows returns the rows with the given indices in upload order.
// Duplicates are ignored.
func (sess *Session) pickRows(indices []int) ([]Row, error) {
	positions := make([]int, 0, len(indices))
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		pos, ok := sess.byIndex[idx]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrRowNotFound, idx)
		}
		if !seen[idx] {
			seen[idx] = true
			positions = append(positions, pos)
		}
	}
	sort.Ints(positions)

	rows := make([]Row, len(positions))
	for i, pos := range positions {
		rows[i] = sess.Rows[pos]
	}
	return rows, nil
}

func (sess *Session) row(index int) (Row, error) {
	pos, ok := sess.byIndex[index]
	if !ok {
		return Row{}, fmt.Errorf("%w: %d", ErrRowNotFound, index)
	}
	return sess.Rows[pos], nil
}

// ----------------------------------------------------------------------------
// Single-row check and download
// ----------------------------------------------------------------------------

// RowPreview is the result of checking a single row.
type RowPreview struct {
	Row          RowView  `json:"row"`
	Columns      []string `json:"columns"`
	Records      [][]any  `json:"records"`
	TotalRecords int      `json:"total_records"`
}

// CheckRow fetches one row's resource and caches the result for later exports.
// Fetch failures are returned as *FetchFailure.
func (s *Service) CheckRow(ctx context.Context, sessionID string, index int) (*RowPreview, error) {
	sess, row, p, err := s.rowPayload(ctx, sessionID, index)
	if err != nil {
		return nil, err
	}

	preview := &RowPreview{
		Row: RowView{
			Index:    row.Index,
			Line:     row.Line,
			Filename: ResolveName(row, sess.Binding.NameFields, s.exporter.NameOptions()),
			URL:      row.Get(sess.Binding.URLField),
			Cached:   true,
		},
		Columns:      p.Columns,
		TotalRecords: len(p.Records),
	}
	preview.Records = p.Records
	if len(preview.Records) > PreviewRecords {
		preview.Records = preview.Records[:PreviewRecords]
	}
	return preview, nil
}

// DownloadRow returns one row's resource as a spreadsheet along with its
// filename. The row cache is used when the row was already fetched.
func (s *Service) DownloadRow(ctx context.Context, sessionID string, index int) (string, []byte, error) {
	sess, row, p, err := s.rowPayload(ctx, sessionID, index)
	if err != nil {
		return "", nil, err
	}

	link := row.Get(sess.Binding.URLField)
	if p.Empty() {
		return "", nil, &FetchFailure{URL: link, Reason: ReasonEmpty, Message: ErrEmptyResult.Error()}
	}

	data, err := EncodeXLSX(p)
	if err != nil {
		return "", nil, fmt.Errorf("row %d: %w", index, err)
	}
	return ResolveName(row, sess.Binding.NameFields, s.exporter.NameOptions()), data, nil
}

func (s *Service) rowPayload(ctx context.Context, sessionID string, index int) (*Session, Row, *Payload, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, Row{}, nil, err
	}
	row, err := sess.row(index)
	if err != nil {
		return nil, Row{}, nil, err
	}

	key := RowKey{SessionID: sess.ID, Index: row.Index}
	if p, ok := s.rowCache.Get(key); ok {
		return sess, row, p, nil
	}

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	res := s.memo.Fetch(ctx, row.Get(sess.Binding.URLField))
	if res.Failure != nil {
		return nil, Row{}, nil, res.Failure
	}
	s.rowCache.Put(key, res.Payload)
	s.dropOrphanRows(sess.ID)
	return sess, row, res.Payload, nil
}

// dropOrphanRows discards cached rows of a session deleted or reset while a
// fetch for it was in flight.
func (s *Service) dropOrphanRows(sessionID string) {
	s.mu.RLock()
	_, live := s.sessions[sessionID]
	s.mu.RUnlock()
	if !live {
		s.rowCache.DropSession(sessionID)
	}
}

// ----------------------------------------------------------------------------
// Reset and status
// ----------------------------------------------------------------------------

// ResetSummary reports what Reset discarded.
type ResetSummary struct {
	Sessions  int `json:"sessions"`
	Exports   int `json:"exports"`
	Cancelled int `json:"cancelled"`
}

// Reset cancels running exports and discards every session, export result,
// and cached fetch result.
func (s *Service) Reset(ctx context.Context) ResetSummary {
	s.mu.Lock()
	sum := ResetSummary{Sessions: len(s.sessions), Exports: len(s.exports)}
	for _, ae := range s.exports {
		if !ae.snapshot().Done() {
			ae.cancel()
			sum.Cancelled++
		}
	}
	s.sessions = make(map[string]*Session)
	s.exports = make(map[string]*activeExport)
	s.mu.Unlock()

	s.rowCache.Clear()
	s.memo.Clear()

	s.logger.InfoContext(ctx, "state reset",
		"sessions", sum.Sessions,
		"exports", sum.Exports,
		"cancelled", sum.Cancelled,
	)
	return sum
}

// ServiceStatus is a snapshot of in-memory state for the status endpoint.
type ServiceStatus struct {
	Sessions   int           `json:"sessions"`
	Exports    int           `json:"exports"`
	CachedRows int           `json:"cached_rows"`
	Memo       MemoStats     `json:"memo"`
	Limiter    LimiterStatus `json:"limiter"`
}

// Status returns the current service state.
func (s *Service) Status() ServiceStatus {
	s.mu.RLock()
	st := ServiceStatus{Sessions: len(s.sessions), Exports: len(s.exports)}
	s.mu.RUnlock()

	st.CachedRows = s.rowCache.Len()
	st.Memo = s.memo.Stats()
	st.Limiter = s.limiter.Status()
	return st
}

// History returns the most recent export records, newest first.
// Without a HistoryStore it returns an empty list.
func (s *Service) History(ctx context.Context, limit int) ([]ExportRecord, error) {
	if s.history == nil {
		return []ExportRecord{}, nil
	}
	return s.history.Recent(ctx, limit)
}
