package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/JonMunkholm/rowfetch/internal/core"
)

var (
	muted   = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#059669")
	failure = lipgloss.Color("#DC2626")
	white   = lipgloss.Color("#F9FAFB")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(failure).Bold(true)
	codeStyle    = lipgloss.NewStyle().Foreground(white).Background(lipgloss.Color("#1F2937")).Padding(0, 1)
)

const rule = "─────────────────────────────────────"

// newProgress draws a row counter on w.
func newProgress(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("fetching"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// printReport writes the export outcome.
func printReport(w io.Writer, report core.ExportReport, archive string, elapsed time.Duration) {
	fmt.Fprintln(w, mutedStyle.Render(rule))
	fmt.Fprintf(w, "%s %s\n", successStyle.Render(fmt.Sprintf("✓ %d exported", len(report.Successes))),
		mutedStyle.Render("in "+elapsed.Round(time.Millisecond).String()))
	for _, name := range report.Successes {
		fmt.Fprintf(w, "  %s\n", name)
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("✗ %d failed", len(report.Failures))))
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s %s\n", f.Filename, mutedStyle.Render(f.Reason+" "+f.URL))
		}
	}

	if archive != "" {
		fmt.Fprintf(w, "%s %s\n", mutedStyle.Render("Archive:"), codeStyle.Render(archive))
	}
	fmt.Fprintln(w, mutedStyle.Render(rule))
}

// printValidation writes the outcome of reading and validating a row list.
func printValidation(w io.Writer, ds *core.Dataset, b core.Binding, usable []core.Row, problems []core.RowProblem) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(ds.Source), mutedStyle.Render("profile "+b.Profile))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("URL column:"), b.URLField)
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Naming:"), strings.Join(b.NameFields, ", "))
	fmt.Fprintf(w, "  %s\n", successStyle.Render(fmt.Sprintf("%d of %d rows usable", len(usable), len(ds.Rows))))
	for _, p := range problems {
		fmt.Fprintf(w, "  %s line %d: missing %s\n", errorStyle.Render("✗"), p.Row.Line, strings.Join(p.Missing, ", "))
	}
}
