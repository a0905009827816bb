package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/rowfetch/internal/logging"
)

func newTestFetcher(opts ...FetcherOption) *HTTPFetcher {
	return NewHTTPFetcher(append([]FetcherOption{WithFetchLogger(logging.Discard())}, opts...)...)
}

// ----------------------------------------------------------------------------
// HTTPFetcher Success Tests
// ----------------------------------------------------------------------------

func TestHTTPFetcher_Bodies(t *testing.T) {
	xlsxBody := buildWorkbook(t, [][]any{{"k", "v"}, {"a", 1}})

	tests := []struct {
		name        string
		contentType string
		body        []byte
		wantColumns []string
		wantRecords int
	}{
		{
			name:        "json list",
			contentType: "application/json",
			body:        []byte(`[{"k":"a","v":1},{"k":"b","v":2}]`),
			wantColumns: []string{"k", "v"},
			wantRecords: 2,
		},
		{
			name:        "json data envelope",
			contentType: "application/json",
			body:        []byte(`{"status":"OK","data":[{"k":"a"}]}`),
			wantColumns: []string{"k"},
			wantRecords: 1,
		},
		{
			name:        "xlsx body",
			contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			body:        xlsxBody,
			wantColumns: []string{"k", "v"},
			wantRecords: 1,
		},
		{
			name:        "empty list",
			contentType: "application/json",
			body:        []byte(`[]`),
			wantRecords: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write(tt.body)
			}))
			defer srv.Close()

			res := newTestFetcher().Fetch(context.Background(), srv.URL)
			if res.Failure != nil {
				t.Fatalf("Fetch() failed: %v", res.Failure)
			}
			if len(res.Payload.Records) != tt.wantRecords {
				t.Errorf("records = %d, want %d", len(res.Payload.Records), tt.wantRecords)
			}
			if tt.wantColumns != nil && strings.Join(res.Payload.Columns, ",") != strings.Join(tt.wantColumns, ",") {
				t.Errorf("columns = %v, want %v", res.Payload.Columns, tt.wantColumns)
			}
		})
	}
}

func TestHTTPFetcher_SendsUserAgent(t *testing.T) {
	var gotUA, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotMethod = r.Method
		_, _ = w.Write([]byte(`[{"a":1}]`))
	}))
	defer srv.Close()

	newTestFetcher(WithUserAgent("rowfetch-test/2")).Fetch(context.Background(), srv.URL)

	if gotUA != "rowfetch-test/2" {
		t.Errorf("User-Agent = %q, want rowfetch-test/2", gotUA)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
}

// ----------------------------------------------------------------------------
// HTTPFetcher Failure Tests
// ----------------------------------------------------------------------------

func TestHTTPFetcher_StatusFailures(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", code)
			}))
			defer srv.Close()

			res := newTestFetcher().Fetch(context.Background(), srv.URL)
			if res.Failure == nil {
				t.Fatal("expected failure")
			}
			if res.Failure.Reason != ReasonStatus {
				t.Errorf("Reason = %q, want %q", res.Failure.Reason, ReasonStatus)
			}
			if res.Failure.StatusCode != code {
				t.Errorf("StatusCode = %d, want %d", res.Failure.StatusCode, code)
			}
			if !errors.Is(res.Failure, ErrFetchFailure) {
				t.Error("failure should match ErrFetchFailure")
			}
		})
	}
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	res := newTestFetcher(WithFetchTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL)

	if res.Failure == nil || res.Failure.Reason != ReasonTimeout {
		t.Fatalf("Fetch() = %+v, want timeout failure", res.Failure)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestHTTPFetcher_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"a":"` + strings.Repeat("x", 1024) + `"}]`))
	}))
	defer srv.Close()

	res := newTestFetcher(WithMaxBodySize(64)).Fetch(context.Background(), srv.URL)
	if res.Failure == nil || res.Failure.Reason != ReasonTooLarge {
		t.Fatalf("Fetch() = %+v, want too_large failure", res.Failure)
	}
}

func TestHTTPFetcher_Undecodable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>login required</body></html>"))
	}))
	defer srv.Close()

	res := newTestFetcher().Fetch(context.Background(), srv.URL)
	if res.Failure == nil || res.Failure.Reason != ReasonDecode {
		t.Fatalf("Fetch() = %+v, want decode failure", res.Failure)
	}
}

func TestHTTPFetcher_DeeplyNestedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Repeat("[", 4_000_000)))
	}))
	defer srv.Close()

	res := newTestFetcher().Fetch(context.Background(), srv.URL)
	if res.Failure == nil || res.Failure.Reason != ReasonDecode {
		t.Fatalf("Fetch() = %+v, want decode failure", res.Failure)
	}
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := newTestFetcher().Fetch(context.Background(), url)
	if res.Failure == nil || res.Failure.Reason != ReasonNetwork {
		t.Fatalf("Fetch() = %+v, want network failure", res.Failure)
	}
	if res.Failure.URL != url {
		t.Errorf("URL = %q, want %q", res.Failure.URL, url)
	}
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "ftp://files.example/x.xlsx", "http://", "://missing"} {
		t.Run(raw, func(t *testing.T) {
			res := newTestFetcher().Fetch(context.Background(), raw)
			if res.Failure == nil || res.Failure.Reason != ReasonInvalid {
				t.Fatalf("Fetch(%q) = %+v, want invalid failure", raw, res.Failure)
			}
		})
	}
}
