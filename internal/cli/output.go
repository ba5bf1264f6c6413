package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // One or more fixture cases failed
	ExitCommandError = 2 // Command error (invalid paths, bad config, database not found, etc.)
)

// Error codes reported in JSON output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Base directory or fixture not found
	ErrCodeConfig      = "E003" // Invalid testcli.yaml or flag value
	ErrCodeStore       = "E004" // History database error
	ErrCodeCasesFailed = "E_CASES_FAILED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
	ErrCode string // JSON error code (defaults to ErrCodeGeneric)

	reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// WithCode sets the JSON error code.
func (e *ExitError) WithCode(code string) *ExitError {
	e.ErrCode = code
	return e
}

// ErrorCode returns the JSON error code carried by err.
func ErrorCode(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.ErrCode != "" {
		return exitErr.ErrCode
	}
	return ErrCodeGeneric
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure for errors that are not
// ExitErrors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// JSON reports whether output is machine-readable.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data as an ok response in JSON mode. In text mode it
// calls render, which owns the human-readable layout.
func (f *OutputFormatter) Success(data interface{}, render func(w io.Writer)) error {
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	render(f.Writer)
	return nil
}

// Failure writes data together with an error block. Text mode renders data
// the same way Success does; the caller reports the error itself.
func (f *OutputFormatter) Failure(data interface{}, code, message string, render func(w io.Writer)) error {
	if f.JSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	render(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.JSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// ReportError writes a command error as a JSON error response. Case
// failures are left alone since Failure already reported them. It returns
// true once err has been written, including by an earlier call.
func (f *OutputFormatter) ReportError(err error) bool {
	if err == nil {
		return false
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		if !f.JSON() {
			return false
		}
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return true
	}
	if exitErr.reported {
		return true
	}
	if exitErr.Code != ExitCommandError || !f.JSON() {
		return false
	}

	var details interface{}
	if exitErr.Err != nil {
		details = map[string]string{"cause": exitErr.Err.Error()}
	}
	_ = f.Error(ErrorCode(exitErr), exitErr.Message, details)
	exitErr.reported = true
	return true
}

// reportError passes err through after reporting it in the command's
// output format.
func reportError(opts *RootOptions, cmd *cobra.Command, err error) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	formatter.ReportError(err)
	return err
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
