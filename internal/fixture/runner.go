package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const waitDelay = 500 * time.Millisecond

// RunOutcome is what one command execution produced. The runner never
// asserts on it; the harness decides what counts as failure.
type RunOutcome struct {
	// Err is the execution error: non-zero exit, spawn failure, or timeout.
	Err error

	Stdout string
	Stderr string

	// ExpectedStdout is the raw contents of the stdout sentinel.
	// Only meaningful when HasExpectedStdout is true.
	ExpectedStdout    string
	HasExpectedStdout bool

	Duration time.Duration
}

// RunCommand executes the fixture's command with targetPath as working
// directory.
//
// The returned error covers fixture problems only (missing command file,
// unreadable sentinel). Execution failures land in RunOutcome.Err.
func RunCommand(ctx context.Context, targetPath string, opts ...Option) (*RunOutcome, error) {
	return runCommand(ctx, targetPath, ResolveOptions(opts...))
}

func runCommand(ctx context.Context, targetPath string, o Options) (*RunOutcome, error) {
	command, err := os.ReadFile(filepath.Join(targetPath, CommandFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, configError("missing command fixture", nil)
		}
		return nil, configError("cannot read command fixture", err)
	}

	outcome := &RunOutcome{}

	name, ok, err := findStdoutSentinel(targetPath)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", targetPath, err)
	}
	if ok {
		expected, err := os.ReadFile(filepath.Join(targetPath, name))
		if err != nil {
			return nil, configError("cannot read "+name, err)
		}
		outcome.ExpectedStdout = string(expected)
		outcome.HasExpectedStdout = true
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, o.Shell[1:]...), string(command))
	cmd := exec.CommandContext(ctx, o.Shell[0], args...)
	cmd.Dir = targetPath
	// Grandchildren holding the output pipes must not outlive a timeout.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	o.Logger.Debug("running command", "dir", targetPath, "command", string(command))

	start := time.Now()
	runErr := cmd.Run()
	outcome.Duration = time.Since(start)
	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = fmt.Errorf("%w (%v)", ctxErr, runErr)
		}
		outcome.Err = runErr
	}

	o.Logger.Debug("command finished",
		"dir", targetPath,
		"duration", outcome.Duration,
		"error", outcome.Err,
	)

	return outcome, nil
}
