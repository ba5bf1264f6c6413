// Package main is the entry point for the testcli command.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/testcli/internal/cli"
)

// Version information, injected at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cli.NewRootCommand()
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, Commit)

	err := rootCmd.ExecuteContext(ctx)
	code := cli.GetExitCode(err)

	// Flag and argument errors come from cobra as plain errors.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		code = cli.ExitCommandError
	}
	// Case failures are already reported on stdout.
	if code == cli.ExitCommandError {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		formatter := &cli.OutputFormatter{Format: format, Writer: os.Stdout}
		if !formatter.ReportError(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}

	stop()
	os.Exit(code)
}
