package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/testcli/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string
	Fixture  string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show runs recorded with "testcli run --db".

Without --run or --fixture the most recent runs are listed. --run shows
every case of one run; --fixture shows one fixture across runs.

Examples:
  testcli history --db ./history.db
  testcli history --db ./history.db --run 019237a1-...
  testcli history --db ./history.db --fixture test-echo --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(opts.RootOptions, cmd, showHistory(opts, cmd))
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the history database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of entries (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the cases of one run")
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "show one fixture across runs")

	_ = cmd.MarkFlagRequired("db")
	cmd.MarkFlagsMutuallyExclusive("run", "fixture")

	return cmd
}

func showHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database)).WithCode(ErrCodeNotFound)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeStore)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	switch {
	case opts.RunID != "":
		cases, err := st.ReadCases(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err).WithCode(ErrCodeStore)
		}
		if len(cases) == 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID)).WithCode(ErrCodeNotFound)
		}
		return formatter.Success(cases, func(w io.Writer) {
			renderCasesText(w, cases, false)
		})

	case opts.Fixture != "":
		cases, err := st.ReadFixtureHistory(ctx, opts.Fixture, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read fixture history", err).WithCode(ErrCodeStore)
		}
		return formatter.Success(cases, func(w io.Writer) {
			if len(cases) == 0 {
				fmt.Fprintf(w, "No recorded results for %s.\n", opts.Fixture)
				return
			}
			renderCasesText(w, cases, true)
		})

	default:
		runs, err := st.ReadRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read runs", err).WithCode(ErrCodeStore)
		}
		return formatter.Success(runs, func(w io.Writer) {
			renderRunsText(w, runs)
		})
	}
}

func renderRunsText(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  %d passed, %d failed  %s\n",
			run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.Passed, run.Failed, run.BaseDir)
	}
}

func renderCasesText(w io.Writer, cases []store.CaseRecord, withRun bool) {
	for _, c := range cases {
		mark := "✓"
		if !c.Pass {
			mark = "✗"
		}
		if withRun {
			fmt.Fprintf(w, "%s %s (run %s)\n", mark, c.Fixture, c.RunID)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, c.Fixture)
		}
		if c.Message != "" {
			fmt.Fprintf(w, "  %s\n", c.Message)
		}
		for _, warning := range c.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}
}
