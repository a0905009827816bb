package core

// service_export.go runs exports in the background.
//
// StartExport takes a limiter slot, registers an activeExport, and returns its
// id right away. Subscribers receive ExportProgress snapshots; slow listeners
// miss intermediate updates but always see the terminal state because their
// channel is closed after it is sent. Finished exports stay available for
// download until they expire or the service is reset.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ExportSelection chooses the rows of a session to export. All exports every
// usable row; otherwise Rows lists row indices, and an empty Rows exports the
// session's current selection.
type ExportSelection struct {
	Rows []int `json:"rows"`
	All  bool  `json:"all"`
}

type activeExport struct {
	id        string
	sessionID string
	source    string
	profile   string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	mu        sync.Mutex
	progress  ExportProgress
	result    *ExportResult
	err       error
	listeners []chan ExportProgress
}

// StartExport begins an asynchronous export of the selected rows of a session
// and returns the export id. It waits for a limiter slot using ctx and fails
// with ErrTooManyExports when none frees up in time.
func (s *Service) StartExport(ctx context.Context, sessionID string, sel ExportSelection) (string, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return "", err
	}

	var rows []Row
	switch {
	case sel.All:
		rows = sess.Rows
	case len(sel.Rows) > 0:
		if rows, err = sess.pickRows(sel.Rows); err != nil {
			return "", err
		}
	default:
		rows = sess.selectedRows()
	}
	if len(rows) == 0 {
		return "", ErrNothingSelected
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	exportID := uuid.New().String()
	runCtx, cancel := context.WithTimeout(context.Background(), s.exportTimeout)

	ae := &activeExport{
		id:        exportID,
		sessionID: sess.ID,
		source:    sess.Source,
		profile:   sess.Binding.Profile,
		startedAt: s.now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		progress: ExportProgress{
			ExportID:  exportID,
			SessionID: sess.ID,
			Phase:     PhaseQueued,
			Total:     len(rows),
		},
	}

	s.mu.Lock()
	s.exports[exportID] = ae
	s.mu.Unlock()

	req := ExportRequest{
		SessionID:  sess.ID,
		Rows:       rows,
		URLField:   sess.Binding.URLField,
		NameFields: sess.Binding.NameFields,
	}
	client := ExportRecord{
		IPAddress: ClientIPFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
	}

	go s.runExport(runCtx, ae, req, client)

	return exportID, nil
}

func (s *Service) runExport(ctx context.Context, ae *activeExport, req ExportRequest, client ExportRecord) {
	defer s.limiter.Release()
	defer ae.cancel()

	logger := s.logger.With("export_id", ae.id, "session_id", ae.sessionID)
	logger.Info("export started", "rows", len(req.Rows))

	ae.update(func(p *ExportProgress) { p.Phase = PhaseFetching })

	result, err := s.exporter.Export(ctx, req, func(pr Progress) {
		ae.update(func(p *ExportProgress) {
			p.Current = pr.Current
			p.Filename = pr.Filename
		})
	})
	s.dropOrphanRows(ae.sessionID)

	ae.mu.Lock()
	ae.result, ae.err = result, err
	switch {
	case err == nil:
		ae.progress.Phase = PhaseComplete
	case errors.Is(err, context.Canceled):
		ae.progress.Phase = PhaseCancelled
		ae.progress.Error = err.Error()
	default:
		ae.progress.Phase = PhaseFailed
		ae.progress.Error = err.Error()
	}
	final := ae.progress
	ae.mu.Unlock()

	rec := ExportRecord{
		ID:        ae.id,
		SessionID: ae.sessionID,
		Source:    ae.source,
		Profile:   ae.profile,
		Phase:     final.Phase,
		Selected:  len(req.Rows),
		Error:     final.Error,
		StartedAt: ae.startedAt,
		Duration:  s.now().Sub(ae.startedAt),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
	if result != nil {
		rec.Succeeded = len(result.Report.Successes)
		rec.Failed = len(result.Report.Failures)
	}

	if err != nil {
		logger.Warn("export ended early", "phase", final.Phase, "error", err)
	}
	s.recordHistory(rec)

	ae.closeListeners()
	close(ae.done)
	s.cleanup(ae.id, s.sessionTTL)
}

func (s *Service) recordHistory(rec ExportRecord) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Error("record export history", "export_id", rec.ID, "error", err)
	}
}

func (s *Service) getExport(exportID string) (*activeExport, error) {
	s.mu.RLock()
	ae, ok := s.exports[exportID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, exportID)
	}
	return ae, nil
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the export finishes.
func (s *Service) SubscribeProgress(exportID string) (<-chan ExportProgress, error) {
	ae, err := s.getExport(exportID)
	if err != nil {
		return nil, err
	}

	ch := make(chan ExportProgress, 10)

	ae.mu.Lock()
	defer ae.mu.Unlock()

	// Send current progress immediately
	ch <- ae.progress
	if ae.progress.Done() {
		close(ch)
		return ch, nil
	}
	ae.listeners = append(ae.listeners, ch)
	return ch, nil
}

// ExportProgress returns the current progress without blocking.
func (s *Service) ExportProgress(exportID string) (ExportProgress, error) {
	ae, err := s.getExport(exportID)
	if err != nil {
		return ExportProgress{}, err
	}
	return ae.snapshot(), nil
}

// CancelExport cancels a running export. The run stops before its next row.
func (s *Service) CancelExport(exportID string) error {
	ae, err := s.getExport(exportID)
	if err != nil {
		return err
	}
	ae.cancel()
	return nil
}

// ExportResult returns the archive and report of a finished export.
// It fails with ErrExportRunning while the export is still in progress and
// with the run's error when it did not complete.
func (s *Service) ExportResult(exportID string) (*ExportResult, error) {
	ae, err := s.getExport(exportID)
	if err != nil {
		return nil, err
	}

	select {
	case <-ae.done:
	default:
		return nil, ErrExportRunning
	}

	ae.mu.Lock()
	defer ae.mu.Unlock()
	if ae.err != nil {
		return nil, ae.err
	}
	return ae.result, nil
}

// WaitExport blocks until the export finishes or ctx is done.
func (s *Service) WaitExport(ctx context.Context, exportID string) (*ExportResult, error) {
	ae, err := s.getExport(exportID)
	if err != nil {
		return nil, err
	}

	select {
	case <-ae.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.result, ae.err
}

func (ae *activeExport) snapshot() ExportProgress {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.progress
}

// update applies fn to the progress and notifies listeners.
func (ae *activeExport) update(fn func(*ExportProgress)) {
	ae.mu.Lock()
	fn(&ae.progress)
	p := ae.progress
	ae.mu.Unlock()
	ae.notify(p)
}

// notify sends progress updates to all listeners.
func (ae *activeExport) notify(p ExportProgress) {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	for _, ch := range ae.listeners {
		select {
		case ch <- p:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners delivers the terminal state and closes every listener.
func (ae *activeExport) closeListeners() {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	for _, ch := range ae.listeners {
		// Make room so the terminal state is never dropped.
		select {
		case ch <- ae.progress:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ae.progress:
			default:
			}
		}
		close(ch)
	}
	ae.listeners = nil
}

// cleanup removes the export from tracking after a delay.
func (s *Service) cleanup(exportID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.exports, exportID)
		s.mu.Unlock()
	})
}
