package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/rowfetch/internal/app"
	"github.com/JonMunkholm/rowfetch/internal/config"
	"github.com/JonMunkholm/rowfetch/internal/core"
)

// rowListOptions select the input file and how its columns are read.
type rowListOptions struct {
	input       string
	profile     string
	urlColumn   string
	nameColumns []string
}

func (o *rowListOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "Row list (.xlsx or .csv) (required)")
	cmd.Flags().StringVarP(&o.profile, "profile", "p", "bps", "Naming profile")
	cmd.Flags().StringVar(&o.urlColumn, "url-column", "", "URL column (custom profile)")
	cmd.Flags().StringSliceVar(&o.nameColumns, "name-column", nil, "Naming column, repeat in order (custom profile)")
	_ = cmd.MarkFlagRequired("input")
}

// load reads, binds and validates the row list.
func (o *rowListOptions) load() (*core.Dataset, core.Binding, []core.Row, []core.RowProblem, error) {
	profile, err := core.LookupProfile(o.profile)
	if err != nil {
		return nil, core.Binding{}, nil, nil, err
	}

	f, err := os.Open(o.input)
	if err != nil {
		return nil, core.Binding{}, nil, nil, err
	}
	defer f.Close()

	ds, err := core.ReadDataset(filepath.Base(o.input), f)
	if err != nil {
		return nil, core.Binding{}, nil, nil, err
	}

	binding, err := profile.Bind(ds.Header, o.urlColumn, o.nameColumns)
	if err != nil {
		return ds, core.Binding{}, nil, nil, err
	}

	usable, problems, err := core.ValidateRows(ds.Rows, binding.Required)
	return ds, binding, usable, problems, err
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

type exportOptions struct {
	rowListOptions
	output      string
	rows        []int
	concurrency int
	reportJSON  bool
	failOnError bool
}

func newExportCmd() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch every usable row and write the workbooks to a ZIP archive",
		Example: `  rowfetch export -i rilis.xlsx -o rilis.zip
  rowfetch export -i list.csv -o out.zip --profile custom --url-column Link --name-column Title --name-column Month
  rowfetch export -i rilis.xlsx -o some.zip --rows 0,2,5 --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runExport(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Archive path (default: the configured archive name)")
	cmd.Flags().IntSliceVar(&opts.rows, "rows", nil, "Export only these 0-based row indices")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Distinct URLs fetched in parallel (default: FETCH_CONCURRENCY)")
	cmd.Flags().BoolVar(&opts.reportJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&opts.failOnError, "fail-on-error", false, "Exit non-zero when any row fails")
	return cmd
}

func runExport(ctx context.Context, opts *exportOptions, stdout, stderr io.Writer) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	_, binding, usable, problems, err := opts.load()
	if err != nil {
		return err
	}
	for _, p := range problems {
		logger.Warn("row skipped", "line", p.Row.Line, "missing", p.Missing)
	}

	rows, err := pickRows(usable, opts.rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return core.ErrNothingSelected
	}

	concurrency := cfg.Fetch.Concurrency
	if opts.concurrency > 0 {
		concurrency = opts.concurrency
	}
	output := opts.output
	if output == "" {
		output = cfg.Export.ArchiveName
	}

	exporter := core.NewExporter(app.NewFetcher(cfg, logger),
		core.WithNameOptions(app.NameOptions(cfg)),
		core.WithConcurrency(concurrency),
		core.WithLogger(logger),
	)

	bar := newProgress(stderr, len(rows))
	start := time.Now()

	result, err := exporter.Export(ctx, core.ExportRequest{
		Rows:       rows,
		URLField:   binding.URLField,
		NameFields: binding.NameFields,
	}, func(p core.Progress) {
		bar.Describe(p.Filename)
		_ = bar.Set(p.Current)
	})
	_ = bar.Finish()
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result.Archive, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	recordHistory(ctx, cfg, logger, opts, start, result)

	if opts.reportJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Report); err != nil {
			return err
		}
	} else {
		printReport(stdout, result.Report, output, time.Since(start))
	}

	if opts.failOnError && len(result.Report.Failures) > 0 {
		return fmt.Errorf("%d of %d rows failed", len(result.Report.Failures), result.Report.Total())
	}
	return nil
}

// pickRows keeps the usable rows whose index is listed, in row order.
// An empty list keeps every row.
func pickRows(usable []core.Row, indices []int) ([]core.Row, error) {
	if len(indices) == 0 {
		return usable, nil
	}

	byIndex := make(map[int]bool, len(usable))
	for _, r := range usable {
		byIndex[r.Index] = true
	}

	want := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if !byIndex[idx] {
			return nil, fmt.Errorf("%w: %d is not a usable row", core.ErrRowNotFound, idx)
		}
		want[idx] = true
	}

	var rows []core.Row
	for _, r := range usable {
		if want[r.Index] {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// recordHistory stores a summary of the run when a history database is
// configured. Failures are logged, never returned.
func recordHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts *exportOptions, start time.Time, result *core.ExportResult) {
	if !cfg.Database.Enabled() {
		return
	}

	history, closeHistory, err := app.OpenHistory(ctx, cfg)
	if err != nil {
		logger.Warn("export history unavailable", "error", err)
		return
	}
	defer closeHistory()

	rec := core.ExportRecord{
		ID:        "cli-" + start.UTC().Format("20060102T150405.000"),
		SessionID: "cli",
		Source:    filepath.Base(opts.input),
		Profile:   opts.profile,
		Phase:     core.PhaseComplete,
		Selected:  result.Report.Total(),
		Succeeded: len(result.Report.Successes),
		Failed:    len(result.Report.Failures),
		StartedAt: start,
		Duration:  time.Since(start),
		UserAgent: "rowfetch-cli/" + version,
	}
	if err := history.Record(ctx, rec); err != nil {
		logger.Warn("record export history", "error", err)
	}
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

func newValidateCmd() *cobra.Command {
	opts := &rowListOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a row list against a profile without fetching anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := loadConfig(); err != nil {
				return err
			}
			ds, binding, usable, problems, err := opts.load()
			if err != nil {
				return err
			}
			printValidation(cmd.OutOrStdout(), ds, binding, usable, problems)
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

// ---------------------------------------------------------------------------
// profiles
// ---------------------------------------------------------------------------

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the naming profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, p := range core.Profiles() {
				fmt.Fprintf(w, "%s %s\n", titleStyle.Render(p.Key), mutedStyle.Render(p.Label))
				if p.Custom {
					fmt.Fprintln(w, "  URL and naming columns are chosen with --url-column and --name-column")
					continue
				}
				fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("URL column:"), p.URLColumn)
				fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Naming:"), strings.Join(p.NameColumns, ", "))
			}
			return nil
		},
	}
}
