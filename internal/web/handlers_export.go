package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rowfetch/internal/core"
	"github.com/JonMunkholm/rowfetch/internal/logging"
	"github.com/JonMunkholm/rowfetch/internal/web/templates"
)

// handleStartExport starts a background export of a session's rows.
// The body is an optional core.ExportSelection; without one the session's
// current selection is exported.
func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	var sel core.ExportSelection
	if err := decodeJSON(w, r, &sel); err != nil {
		s.respondError(w, r, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	exportID, err := s.service.StartExport(withClient(r), sessionID, sel)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "export_id", exportID, "session_id", sessionID).
		Info("export accepted")

	writeJSONStatus(w, http.StatusAccepted, map[string]string{"export_id": exportID})
}

// handleExportProgress streams export progress via Server-Sent Events.
// Event ids are the number of processed rows, so a reconnecting client that
// sends Last-Event-ID skips updates it has already seen.
func (s *Server) handleExportProgress(w http.ResponseWriter, r *http.Request) {
	exportID := chi.URLParam(r, "exportID")

	lastEventID := -1
	if raw := r.Header.Get("Last-Event-ID"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			lastEventID = n
		}
	}

	progressCh, err := s.service.SubscribeProgress(exportID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				fmt.Fprint(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			if progress.Current <= lastEventID && !progress.Done() {
				continue
			}
			lastEventID = progress.Current

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", progress.Current, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleExportStatus returns the current progress snapshot.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.ExportProgress(chi.URLParam(r, "exportID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, progress)
}

// ExportResultResponse is the JSON form of a finished export.
type ExportResultResponse struct {
	ExportID    string            `json:"export_id"`
	Report      core.ExportReport `json:"report"`
	Total       int               `json:"total"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	ArchiveName string            `json:"archive_name"`
	ArchiveSize int               `json:"archive_size"`
}

// handleExportResult returns the report of a finished export.
func (s *Server) handleExportResult(w http.ResponseWriter, r *http.Request) {
	exportID := chi.URLParam(r, "exportID")

	result, err := s.service.ExportResult(exportID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		render(w, r, templates.ReportView(exportID, result.Report))
		return
	}

	writeJSON(w, ExportResultResponse{
		ExportID:    exportID,
		Report:      result.Report,
		Total:       result.Report.Total(),
		Succeeded:   len(result.Report.Successes),
		Failed:      len(result.Report.Failures),
		ArchiveName: s.service.ArchiveName(),
		ArchiveSize: len(result.Archive),
	})
}

// handleExportArchive serves the ZIP archive of a finished export.
func (s *Server) handleExportArchive(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ExportResult(chi.URLParam(r, "exportID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeAttachment(w, s.service.ArchiveName(), zipContentType, result.Archive)
}

// handleCancelExport cancels a running export.
func (s *Server) handleCancelExport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelExport(chi.URLParam(r, "exportID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "cancelled"})
}
