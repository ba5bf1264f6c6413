package fixture

import (
	"errors"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// ErrorKind categorizes case failures.
type ErrorKind string

const (
	// KindConfig indicates the fixture itself is unusable (no command file).
	KindConfig ErrorKind = "FIXTURE_CONFIG"

	// KindExecution indicates the command exited non-zero, timed out, or
	// could not be spawned.
	KindExecution ErrorKind = "EXECUTION"

	// KindStdoutMismatch indicates captured stdout differs from expected-STDOUT.
	KindStdoutMismatch ErrorKind = "STDOUT_MISMATCH"

	// KindMissingExpected indicates an expected entry vanished during
	// validation.
	KindMissingExpected ErrorKind = "MISSING_EXPECTED"

	// KindMissingGenerated indicates an expected file has no generated
	// counterpart.
	KindMissingGenerated ErrorKind = "MISSING_GENERATED"

	// KindContentMismatch indicates normalized file contents differ.
	KindContentMismatch ErrorKind = "CONTENT_MISMATCH"
)

// CaseError is a failure of a single fixture case.
type CaseError struct {
	Kind ErrorKind

	// Path is relative to the fixture directory when one applies.
	Path string

	Message string

	// Expected and Actual hold the compared values for mismatches.
	Expected string
	Actual   string

	Err error
}

// Error implements the error interface.
func (e *CaseError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CaseError) Unwrap() error {
	return e.Err
}

// Diff renders a unified diff between Expected and Actual.
// Returns "" for errors that carry no comparison.
func (e *CaseError) Diff() string {
	if e.Kind != KindStdoutMismatch && e.Kind != KindContentMismatch {
		return ""
	}

	name := e.Path
	if name == "" {
		name = "stdout"
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(e.Expected),
		B:        difflib.SplitLines(e.Actual),
		FromFile: "expected/" + name,
		ToFile:   "actual/" + name,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// KindOf returns the ErrorKind of err, or "" when err is not a CaseError.
func KindOf(err error) ErrorKind {
	var caseErr *CaseError
	if errors.As(err, &caseErr) {
		return caseErr.Kind
	}
	return ""
}

func configError(message string, err error) *CaseError {
	return &CaseError{Kind: KindConfig, Message: message, Err: err}
}
