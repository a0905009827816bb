package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rowfetch/internal/core"
	"github.com/JonMunkholm/rowfetch/internal/web/templates"
)

// handleCreateSession parses an uploaded row list and opens a session.
// Form fields: file, profile, and for custom profiles url_column and
// name_columns (repeated or comma separated, in naming order).
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.respondError(w, r, fmt.Errorf("file too large: limit is %d bytes", maxSize))
			return
		case errors.Is(err, http.ErrNotMultipart):
			s.respondError(w, r, core.ErrNoFile)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	summary, err := s.service.CreateSession(withClient(r), core.UploadRequest{
		FileName:    header.Filename,
		Data:        file,
		Profile:     r.FormValue("profile"),
		URLColumn:   r.FormValue("url_column"),
		NameColumns: splitList(r.MultipartForm.Value["name_columns"]),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, summary)
}

// handleGetSession returns the session summary.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

// handleListRows returns the usable rows with their resolved filenames.
func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.service.SessionRows(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, rows)
}

// handleSessionPage renders the row list with selection and export controls.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	summary, err := s.service.Session(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rows, err := s.service.SessionRows(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	render(w, r, templates.SessionPage(summary, rows))
}

// handleDeleteSession discards a session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectRequest changes the row selection of a session. All applies
// Selected to every usable row; otherwise it applies to Rows.
type SelectRequest struct {
	Rows     []int `json:"rows"`
	Selected bool  `json:"selected"`
	All      bool  `json:"all"`
}

// handleSelectRows updates the selection and returns its new size.
func (s *Server) handleSelectRows(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	id := chi.URLParam(r, "sessionID")

	var (
		n   int
		err error
	)
	if req.All {
		n, err = s.service.SelectAll(id, req.Selected)
	} else {
		n, err = s.service.SetSelected(id, req.Rows, req.Selected)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, map[string]int{"selected": n})
}

// handleCheckRow fetches one row's resource and returns a preview of its records.
func (s *Server) handleCheckRow(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	preview, err := s.service.CheckRow(r.Context(), chi.URLParam(r, "sessionID"), idx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, preview)
}

// handleDownloadRow serves one row's resource as a workbook.
func (s *Server) handleDownloadRow(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename, data, err := s.service.DownloadRow(r.Context(), chi.URLParam(r, "sessionID"), idx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeAttachment(w, filename, xlsxContentType, data)
}
