package fixture

import (
	"io"
	"log/slog"
	"runtime"
	"time"
)

// Options holds resolved harness configuration.
type Options struct {
	// Shell is the argv prefix the command text is appended to.
	// Defaults to DefaultShell().
	Shell []string

	// Timeout bounds a single command execution. Zero means no timeout
	// beyond the context deadline.
	Timeout time.Duration

	// Parallel caps concurrently running cases in RunAll. Values below 1
	// mean one case at a time.
	Parallel int

	// ReportExtraneous records generated entries missing from the expected
	// tree as warnings. They never fail a case.
	ReportExtraneous bool

	Logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Options)

// ResolveOptions applies functional options over the defaults.
func ResolveOptions(opts ...Option) Options {
	o := Options{
		Shell:    DefaultShell(),
		Parallel: 1,
		Logger:   discardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.Shell) == 0 {
		o.Shell = DefaultShell()
	}
	if o.Parallel < 1 {
		o.Parallel = 1
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	return o
}

// DefaultShell returns the shell used to interpret command files on the
// current platform.
func DefaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"/bin/sh", "-c"}
}

// WithShell overrides the shell argv prefix.
func WithShell(shell ...string) Option {
	return func(o *Options) {
		o.Shell = shell
	}
}

// WithTimeout bounds each command execution.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithParallel caps how many cases RunAll executes at once.
func WithParallel(n int) Option {
	return func(o *Options) {
		o.Parallel = n
	}
}

// WithReportExtraneous enables warnings for unexpected generated entries.
func WithReportExtraneous(enabled bool) Option {
	return func(o *Options) {
		o.ReportExtraneous = enabled
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
