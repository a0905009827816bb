package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/rowfetch/internal/core"
)

// ----------------------------------------------------------------------------
// SessionPage Tests
// ----------------------------------------------------------------------------

func TestSessionPage_RowLinks(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		notWant string
	}{
		{
			name: "https link kept",
			url:  "https://example.org/data.json",
			want: `href="https://example.org/data.json"`,
		},
		{
			name:    "javascript scheme blocked",
			url:     "javascript:alert(document.cookie)",
			want:    `href="about:invalid#TemplFailedSanitizationURL"`,
			notWant: `href="javascript:`,
		},
		{
			name:    "mixed case scheme blocked",
			url:     "JavaScript:alert(1)",
			notWant: `href="JavaScript:`,
		},
		{
			name: "quotes escaped",
			url:  `https://example.org/?q="x"`,
			want: `href="https://example.org/?q=&#34;x&#34;"`,
		},
	}

	summary := core.SessionSummary{ID: "s1", Source: "rows.csv", Profile: "custom", URLField: "url"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []core.RowView{{Index: 0, Line: 2, Filename: "a.xlsx", URL: tt.url}}

			var buf bytes.Buffer
			if err := SessionPage(summary, rows).Render(context.Background(), &buf); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			out := buf.String()

			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q", tt.want)
			}
			if tt.notWant != "" && strings.Contains(out, tt.notWant) {
				t.Errorf("output contains %q", tt.notWant)
			}
		})
	}
}

func TestSessionPage_Content(t *testing.T) {
	summary := core.SessionSummary{
		ID:         "s1",
		Source:     "<rows>.csv",
		Profile:    "bps",
		NameFields: []string{"Penamaan_Data", "PIC"},
		TotalRows:  3,
		UsableRows: 2,
		Problems:   []core.RowProblemView{{Line: 4, Missing: []string{"PIC"}}},
	}
	rows := []core.RowView{
		{Index: 0, Line: 2, Filename: "a.xlsx", URL: "https://x/1", Selected: true},
		{Index: 1, Line: 3, Filename: "b.xlsx", URL: "https://x/2"},
	}

	var buf bytes.Buffer
	if err := SessionPage(summary, rows).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<title>&lt;rows&gt;.csv - rowfetch</title>",
		"2 of 3 rows usable.",
		"line 4: missing PIC",
		`data-session="s1"`,
		`value="0" checked>`,
		`value="1">`,
		`href="/api/sessions/s1/rows/1/download"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "<rows>") {
		t.Error("source name was not escaped")
	}
}

// ----------------------------------------------------------------------------
// Fragment Tests
// ----------------------------------------------------------------------------

func TestReportView(t *testing.T) {
	report := core.ExportReport{
		Successes: []string{"a.xlsx"},
		Failures:  []core.ExportFailure{{Filename: "b.xlsx", URL: "https://x/2", Reason: "status"}},
	}

	var buf bytes.Buffer
	if err := ReportView("e1", report).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"1 succeeded", "1 failed", `href="/api/exports/e1/archive"`, "b.xlsx"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestHistoryTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := HistoryTable(nil).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No exports yet.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	if err := ErrorAlert("<b>bad</b>", "", "ERR000").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<b>") || !strings.Contains(out, "<code>ERR000</code>") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "<span>") {
		t.Error("empty action should not render a span")
	}
}
