package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// Harness runs fixture cases found below a base directory.
type Harness struct {
	baseDir string
	opts    Options
}

// New creates a harness for fixtures under baseDir.
func New(baseDir string, opts ...Option) *Harness {
	return &Harness{
		baseDir: baseDir,
		opts:    ResolveOptions(opts...),
	}
}

// BaseDir returns the directory fixture names are resolved against.
func (h *Harness) BaseDir() string {
	return h.baseDir
}

// caseRun threads state through the stages of one case.
type caseRun struct {
	h       *Harness
	dir     string
	result  *Result
	outcome *RunOutcome
}

type stage struct {
	name string
	run  func(ctx context.Context, c *caseRun) error
}

// pipeline is the strict order of a case. Each stage depends on the
// filesystem effects of the one before it.
var pipeline = []stage{
	{"preflight", requireCommand},
	{"cleanup", cleanupStage},
	{"run", runStage},
	{"stdout", stdoutStage},
	{"validate", validateStage},
	{"extraneous", extraneousStage},
}

// Run executes the fixture case name and returns its result.
// The first failing stage stops the case; Result.Err holds the failure.
func (h *Harness) Run(ctx context.Context, name string) *Result {
	start := time.Now()
	result := &Result{Name: name}

	dir, err := filepath.Abs(filepath.Join(h.baseDir, name))
	if err != nil {
		result.Err = fmt.Errorf("resolve fixture %s: %w", name, err)
		return result
	}
	result.Dir = dir

	c := &caseRun{h: h, dir: dir, result: result}
	logger := h.opts.Logger.With("fixture", name)

	for _, s := range pipeline {
		logger.Debug("stage starting", "stage", s.name)
		if err := s.run(ctx, c); err != nil {
			logger.Info("case failed", "stage", s.name, "error", err)
			result.Err = err
			result.Duration = time.Since(start)
			return result
		}
	}

	result.Pass = true
	result.Duration = time.Since(start)
	logger.Info("case passed", "duration", result.Duration, "warnings", len(result.Warnings))
	return result
}

// RunAll executes the named cases, at most Options.Parallel at a time, and
// returns their results in the order given. A failing case does not stop
// the others.
func (h *Harness) RunAll(ctx context.Context, names []string) []*Result {
	results := make([]*Result, len(names))

	var g errgroup.Group
	g.SetLimit(h.opts.Parallel)
	for i, name := range names {
		g.Go(func() error {
			results[i] = h.Run(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Case returns a test body for the fixture name, suitable for t.Run.
func (h *Harness) Case(name string) func(t *testing.T) {
	return func(t *testing.T) {
		t.Helper()

		result := h.Run(t.Context(), name)
		for _, w := range result.Warnings {
			t.Logf("warning: %s", w)
		}
		if result.Err == nil {
			return
		}

		var caseErr *CaseError
		if errors.As(result.Err, &caseErr) {
			if diff := caseErr.Diff(); diff != "" {
				t.Fatalf("fixture %s: %v\n%s", name, result.Err, diff)
			}
		}
		t.Fatalf("fixture %s: %v", name, result.Err)
	}
}

// requireCommand fails before anything is deleted when the fixture has no
// command file.
func requireCommand(_ context.Context, c *caseRun) error {
	info, err := os.Stat(filepath.Join(c.dir, CommandFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return configError("missing command fixture", nil)
		}
		return configError("cannot stat command fixture", err)
	}
	if info.IsDir() {
		return configError("command fixture is a directory", nil)
	}
	return nil
}

func cleanupStage(ctx context.Context, c *caseRun) error {
	return cleanup(ctx, c.dir, c.h.opts.Logger)
}

func runStage(ctx context.Context, c *caseRun) error {
	outcome, err := runCommand(ctx, c.dir, c.h.opts)
	if err != nil {
		return err
	}
	c.outcome = outcome
	c.result.Stdout = outcome.Stdout

	if outcome.Err != nil {
		message := "command failed"
		if stderr := strings.TrimSpace(outcome.Stderr); stderr != "" {
			message = "command failed: " + stderr
		}
		return &CaseError{Kind: KindExecution, Message: message, Err: outcome.Err}
	}
	return nil
}

// stdoutStage compares stdout literally; no normalization applies here.
func stdoutStage(_ context.Context, c *caseRun) error {
	if !c.outcome.HasExpectedStdout || c.outcome.Stdout == c.outcome.ExpectedStdout {
		return nil
	}
	return &CaseError{
		Kind:     KindStdoutMismatch,
		Message:  "stdout does not match " + StdoutFile,
		Expected: c.outcome.ExpectedStdout,
		Actual:   c.outcome.Stdout,
	}
}

func validateStage(ctx context.Context, c *caseRun) error {
	names, err := ExpectedEntries(c.dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", c.dir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		expected := filepath.Join(c.dir, name)
		g.Go(func() error {
			return ValidateTree(ctx, c.dir, expected)
		})
	}
	return g.Wait()
}

func extraneousStage(ctx context.Context, c *caseRun) error {
	if !c.h.opts.ReportExtraneous {
		return nil
	}

	names, err := ExpectedEntries(c.dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", c.dir, err)
	}

	for _, name := range names {
		extras, err := FindExtraneous(ctx, c.dir, filepath.Join(c.dir, name))
		if err != nil {
			// Warnings are best effort and never fail a case.
			c.h.opts.Logger.Warn("extraneous scan failed", "entry", name, "error", err)
			continue
		}
		for _, extra := range extras {
			c.result.addWarning("unexpected generated entry: " + extra)
			c.h.opts.Logger.Warn("unexpected generated entry", "fixture", c.result.Name, "path", extra)
		}
	}
	return nil
}
