package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/testcli/internal/fixture"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Filter string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <base-dir>",
		Short: "List fixtures without running them",
		Long: `List the fixtures under a base directory with their command and
expected entries. Nothing is executed or deleted.

Examples:
  testcli list ./test
  testcli list ./test --filter "test-echo*" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(opts.RootOptions, cmd, listFixtures(opts, args[0], cmd))
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only list fixtures matching this glob")

	return cmd
}

func listFixtures(opts *ListOptions, baseDir string, cmd *cobra.Command) error {
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("base directory not found: %s", baseDir)).WithCode(ErrCodeNotFound)
	}

	names, err := fixture.Discover(baseDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find fixtures", err).WithCode(ErrCodeConfig)
	}

	fixtures := make([]fixture.Info, 0, len(names))
	for _, name := range names {
		fi, err := fixture.Inspect(baseDir, name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to inspect fixture", err)
		}
		fixtures = append(fixtures, fi)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(fixtures, func(w io.Writer) {
		renderListText(w, fixtures)
	})
}

func renderListText(w io.Writer, fixtures []fixture.Info) {
	if len(fixtures) == 0 {
		fmt.Fprintln(w, "No fixtures found.")
		return
	}

	for _, fi := range fixtures {
		fmt.Fprintln(w, fi.Name)
		if fi.HasCommand {
			fmt.Fprintf(w, "  command: %s\n", firstLine(fi.Command))
		} else {
			fmt.Fprintln(w, "  command: (missing)")
		}
		if fi.Stdout != "" {
			fmt.Fprintf(w, "  stdout:  %s\n", fi.Stdout)
		}
		if len(fi.Expected) > 0 {
			fmt.Fprintf(w, "  expects: %s\n", strings.Join(fi.Expected, ", "))
		}
	}
}

func firstLine(s string) string {
	line, rest, found := strings.Cut(s, "\n")
	if found && strings.TrimSpace(rest) != "" {
		return strings.TrimRight(line, "\r") + " ..."
	}
	return strings.TrimRight(line, "\r")
}
