package web

// handlers_common.go holds the dashboard, profile, history and maintenance
// handlers plus the request parsing helpers shared by the other handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rowfetch/internal/core"
	"github.com/JonMunkholm/rowfetch/internal/logging"
	"github.com/JonMunkholm/rowfetch/internal/web/templates"
)

// DefaultHistoryLimit is the number of export runs listed when no limit is given.
const DefaultHistoryLimit = 20

// handleDashboard renders the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// History is best effort on the dashboard.
	history, err := s.service.History(ctx, DefaultHistoryLimit)
	if err != nil {
		s.logRequestError(r, "load export history", err)
		history = nil
	}

	render(w, r, templates.Dashboard(templates.DashboardParams{
		Profiles:    core.Profiles(),
		History:     history,
		Status:      s.service.Status(),
		MaxUploadMB: s.cfg.Upload.MaxFileSize >> 20,
	}))
}

// handleListProfiles returns every registered naming profile.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, core.Profiles())
}

// handleDownloadTemplate serves a header-only workbook for a fixed profile.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	profile, err := core.LookupProfile(chi.URLParam(r, "profile"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data, err := core.ProfileTemplate(profile)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeAttachment(w, core.TemplateFilename(profile), xlsxContentType, data)
}

// handleHistory returns recent export runs as JSON, or as a table for HTMX.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultHistoryLimit)

	history, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		render(w, r, templates.HistoryTable(history))
		return
	}
	writeJSON(w, history)
}

// handleStatus reports sessions, running exports, cache and limiter state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Status())
}

// handleReset cancels running exports and clears sessions and caches.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	summary := s.service.Reset(r.Context())
	writeJSON(w, summary)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseIndex reads a non-negative row index from the URL path.
func parseIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("%w: row index %q", core.ErrRowNotFound, raw)
	}
	return idx, nil
}

// decodeJSON decodes an optional JSON body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// splitList flattens repeated and comma separated form values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"
)

// writeAttachment sends data as a file download named filename.
func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// render writes an HTML component, logging failures after headers are sent.
func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) logRequestError(r *http.Request, msg string, err error) {
	logging.FromContext(r.Context()).Warn(msg, "path", r.URL.Path, "error", err)
}
