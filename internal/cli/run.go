package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/testcli/internal/config"
	"github.com/roach88/testcli/internal/fixture"
	"github.com/roach88/testcli/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config           string
	Filter           string
	Parallel         int
	Timeout          time.Duration
	Shell            []string
	ReportExtraneous bool
	Database         string
	Keep             int

	// IDGenerator allows overriding run ID generation (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDGenerator store.IDGenerator

	// Now allows overriding the run start time (for testing).
	Now func() time.Time
}

// CaseReport is the reported outcome of one fixture case.
type CaseReport struct {
	Name       string   `json:"name"`
	Pass       bool     `json:"pass"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Error      string   `json:"error,omitempty"`
	Diff       string   `json:"diff,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// RunReport is the overall result of a run.
type RunReport struct {
	RunID  string       `json:"run_id,omitempty"`
	Cases  []CaseReport `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <base-dir> [fixture...]",
		Short: "Run fixture cases",
		Long: `Run fixture cases found under a base directory.

Every subdirectory of <base-dir> is a fixture unless fixture names are
given explicitly. Settings are read from <base-dir>/testcli.yaml when
present; flags override them.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid paths, bad config, etc.)

Examples:
  testcli run ./test
  testcli run ./test test-echo test-echo-tofile
  testcli run ./test --filter "build-*" --parallel 4
  testcli run ./test --db ./history.db --format json
  testcli run ./test --db ./history.db --keep 50`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(opts.RootOptions, cmd, runFixtures(opts, args[0], args[1:], cmd))
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to config file (default <base-dir>/testcli.yaml)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run fixtures matching this glob")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 1, "number of cases to run concurrently")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-command timeout (0 disables)")
	cmd.Flags().StringSliceVar(&opts.Shell, "shell", nil, "shell argv prefix, e.g. --shell /bin/bash,-c")
	cmd.Flags().BoolVar(&opts.ReportExtraneous, "report-extraneous", false, "warn about generated files missing from expected trees")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record results in this SQLite database")
	cmd.Flags().IntVar(&opts.Keep, "keep", 0, "after recording, prune history to the newest N runs (0 keeps all)")

	return cmd
}

func runFixtures(opts *RunOptions, baseDir string, names []string, cmd *cobra.Command) error {
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("base directory not found: %s", baseDir)).WithCode(ErrCodeNotFound)
	}

	cfg, err := resolveConfig(opts, baseDir, cmd)
	if err != nil {
		return err
	}

	names = uniqueNames(names)
	if len(names) == 0 {
		names, err = fixture.Discover(baseDir, cfg.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find fixtures", err).WithCode(ErrCodeConfig)
		}
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if len(names) == 0 {
		return formatter.Success(RunReport{Cases: []CaseReport{}}, func(w io.Writer) {
			fmt.Fprintln(w, "No fixtures found.")
		})
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	harnessOpts := []fixture.Option{
		fixture.WithTimeout(cfg.Timeout),
		fixture.WithParallel(cfg.Parallel),
		fixture.WithReportExtraneous(cfg.ReportExtraneous),
		fixture.WithLogger(logger),
	}
	if len(cfg.Shell) > 0 {
		harnessOpts = append(harnessOpts, fixture.WithShell(cfg.Shell...))
	}
	h := fixture.New(baseDir, harnessOpts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	lock, err := lockBaseDir(ctx, baseDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to lock base directory", err)
	}
	defer lock.Unlock()

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	logger.Debug("running fixtures", "base_dir", baseDir, "count", len(names), "parallel", cfg.Parallel)
	results := h.RunAll(ctx, names)
	report := buildReport(results)

	if opts.Database != "" {
		runID, err := recordRun(ctx, opts, h.BaseDir(), started, report)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err).WithCode(ErrCodeStore)
		}
		report.RunID = runID
	}

	render := func(w io.Writer) { renderRunText(w, report, opts.Verbose) }

	if report.Failed > 0 {
		message := fmt.Sprintf("%d case(s) failed", report.Failed)
		if err := formatter.Failure(report, ErrCodeCasesFailed, message, render); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	return formatter.Success(report, render)
}

// resolveConfig loads the config file and applies explicitly set flags on
// top of it.
func resolveConfig(opts *RunOptions, baseDir string, cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		cfg, err = config.LoadDir(baseDir)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err).WithCode(ErrCodeConfig)
	}

	flags := cmd.Flags()
	if flags.Changed("filter") {
		cfg.Filter = opts.Filter
	}
	if flags.Changed("parallel") {
		if opts.Parallel < 1 {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --parallel %d: must be at least 1", opts.Parallel)).WithCode(ErrCodeConfig)
		}
		cfg.Parallel = opts.Parallel
	}
	if flags.Changed("timeout") {
		if opts.Timeout < 0 {
			return nil, NewExitError(ExitCommandError, "invalid --timeout: must not be negative").WithCode(ErrCodeConfig)
		}
		cfg.Timeout = opts.Timeout
	}
	if flags.Changed("shell") {
		if len(opts.Shell) == 0 {
			return nil, NewExitError(ExitCommandError, "invalid --shell: must name a program").WithCode(ErrCodeConfig)
		}
		cfg.Shell = opts.Shell
	}
	if opts.Keep < 0 {
		return nil, NewExitError(ExitCommandError, "invalid --keep: must not be negative").WithCode(ErrCodeConfig)
	}
	if flags.Changed("report-extraneous") {
		cfg.ReportExtraneous = opts.ReportExtraneous
	}
	return cfg, nil
}

// uniqueNames drops repeated fixture names, keeping first-occurrence order.
// A fixture directory is cleaned and written by its run, so it must not be
// run twice at once.
func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	unique := names[:0:0]
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		unique = append(unique, name)
	}
	return unique
}

func buildReport(results []*fixture.Result) RunReport {
	report := RunReport{
		Cases: make([]CaseReport, 0, len(results)),
		Total: len(results),
	}

	for _, r := range results {
		c := CaseReport{
			Name:       r.Name,
			Pass:       r.Pass,
			Warnings:   r.Warnings,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			c.ErrorKind = string(r.ErrorKind())
			c.Error = r.Err.Error()
			var caseErr *fixture.CaseError
			if errors.As(r.Err, &caseErr) {
				c.Diff = caseErr.Diff()
			}
		}
		report.Cases = append(report.Cases, c)

		if r.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	return report
}

func recordRun(ctx context.Context, opts *RunOptions, baseDir string, started time.Time, report RunReport) (string, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return "", err
	}
	defer st.Close()

	gen := opts.IDGenerator
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}
	runID := gen.Generate()

	records := make([]store.CaseRecord, 0, len(report.Cases))
	for _, c := range report.Cases {
		records = append(records, store.CaseRecord{
			Fixture:   c.Name,
			Pass:      c.Pass,
			ErrorKind: c.ErrorKind,
			Message:   c.Error,
			Warnings:  c.Warnings,
			Duration:  time.Duration(c.DurationMS) * time.Millisecond,
		})
	}

	run := store.Run{ID: runID, BaseDir: baseDir, StartedAt: started}
	if err := st.WriteRun(ctx, run, records); err != nil {
		return "", err
	}

	if opts.Keep > 0 {
		if _, err := st.Prune(ctx, opts.Keep); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func renderRunText(w io.Writer, report RunReport, verbose bool) {
	for _, c := range report.Cases {
		if c.Pass {
			fmt.Fprintf(w, "✓ %s\n", c.Name)
		} else {
			fmt.Fprintf(w, "✗ %s\n", c.Name)
			fmt.Fprintf(w, "  %s\n", c.Error)
			if verbose && c.Diff != "" {
				for _, line := range strings.Split(strings.TrimRight(c.Diff, "\n"), "\n") {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
		for _, warning := range c.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", report.Passed, report.Failed, report.Total)
	if report.RunID != "" {
		fmt.Fprintf(w, "Recorded run %s\n", report.RunID)
	}
	if report.Failed == 0 {
		fmt.Fprintln(w, "✓ All cases passed")
	}
}
