package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testcli/internal/testutil"
)

// writeSuite lays out a base directory with one fixture per outcome.
func writeSuite(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{
		"config-missing/expected-out.txt": "never checked\n",

		"test-echo/command":         "echo hello",
		"test-echo/expected-STDOUT": "hello\n",

		"test-mismatch/command":         "echo goodbye",
		"test-mismatch/expected-STDOUT": "hello\n",

		"test-tofile/command":            "mkdir -p dist && printf 'a\\n' > dist/a.js && printf 'b\\n' > dist/b.js",
		"test-tofile/expected-dist/a.js": "a\r\n",

		"test-wrongfile/command":          "printf 'actual\\n' > out.txt",
		"test-wrongfile/expected-out.txt": "expected\n",
	})
	return base
}

// execute runs cmd with args and returns captured stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// decodeError parses a JSON error response and returns its error block.
func decodeError(t *testing.T, stdout string) *CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout: %q", stdout)
	require.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	return resp.Error
}
