package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testcli/internal/testutil"
)

func TestRun_StdoutMatch(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "test-echo", map[string]string{
		"command":         "echo hello",
		"expected-STDOUT": "hello\n",
	})

	result := New(base).Run(context.Background(), "test-echo")
	require.NoError(t, result.Err)
	assert.True(t, result.Pass)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, filepath.Join(base, "test-echo"), result.Dir)
	assert.Empty(t, result.Warnings)
}

func TestRun_StdoutComparisonIsLiteral(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "test-echo", map[string]string{
		"command":         "echo hello",
		"expected-STDOUT": "hello",
	})

	result := New(base).Run(context.Background(), "test-echo")
	require.Error(t, result.Err)
	assert.False(t, result.Pass)
	assert.Equal(t, KindStdoutMismatch, result.ErrorKind())

	var caseErr *CaseError
	require.ErrorAs(t, result.Err, &caseErr)
	assert.Equal(t, "hello", caseErr.Expected)
	assert.Equal(t, "hello\n", caseErr.Actual)
}

func TestRun_GeneratedFileReplacesStaleOutput(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "test-echo-tofile", map[string]string{
		"command":          "printf hello > out.txt",
		"expected-out.txt": "hello",
		"out.txt":          "stale contents",
	})

	result := New(base).Run(context.Background(), "test-echo-tofile")
	require.NoError(t, result.Err)
	assert.True(t, result.Pass)
	assert.Equal(t, "hello", testutil.ReadFile(t, filepath.Join(base, "test-echo-tofile", "out.txt")))
}

func TestRun_StaleOutputCannotCauseFalsePass(t *testing.T) {
	testutil.RequireShell(t)
	// The command writes nothing; only a correct stale file is present.
	base := newFixture(t, "stale", map[string]string{
		"command":          "true",
		"expected-out.txt": "hello",
		"out.txt":          "hello",
	})

	result := New(base).Run(context.Background(), "stale")
	require.Error(t, result.Err)
	assert.Equal(t, KindMissingGenerated, result.ErrorKind())
	assert.Contains(t, result.Err.Error(), "out.txt")
}

func TestRun_TreeContentMismatch(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "mismatch", map[string]string{
		"command":            "mkdir -p dist && printf Y > dist/a.js",
		"expected-dist/a.js": "X",
	})

	result := New(base).Run(context.Background(), "mismatch")
	require.Error(t, result.Err)
	assert.Equal(t, KindContentMismatch, result.ErrorKind())
	assert.Contains(t, result.Err.Error(), "dist/a.js")
}

func TestRun_ExtraGeneratedFileIsNotFatal(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "extra", map[string]string{
		"command":            "mkdir -p dist && printf X > dist/a.js && printf Z > dist/b.js",
		"expected-dist/a.js": "X",
	})

	result := New(base).Run(context.Background(), "extra")
	require.NoError(t, result.Err)
	assert.True(t, result.Pass)
	assert.Empty(t, result.Warnings)
}

func TestRun_ReportExtraneousAddsWarnings(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "extra", map[string]string{
		"command":            "mkdir -p dist && printf X > dist/a.js && printf Z > dist/b.js",
		"expected-dist/a.js": "X",
	})

	result := New(base, WithReportExtraneous(true)).Run(context.Background(), "extra")
	require.NoError(t, result.Err)
	assert.True(t, result.Pass)
	assert.Equal(t, []string{"unexpected generated entry: dist/b.js"}, result.Warnings)
}

func TestRun_MissingCommandFile(t *testing.T) {
	base := newFixture(t, "no-command", map[string]string{
		"expected-out.txt": "hello",
		"out.txt":          "pre-existing",
	})

	result := New(base).Run(context.Background(), "no-command")
	require.Error(t, result.Err)
	assert.Equal(t, KindConfig, result.ErrorKind())
	assert.Contains(t, result.Err.Error(), "missing command fixture")

	// Nothing is deleted when the fixture is misconfigured.
	assert.Equal(t, "pre-existing", testutil.ReadFile(t, filepath.Join(base, "no-command", "out.txt")))
}

func TestRun_MissingFixtureDirectory(t *testing.T) {
	result := New(t.TempDir()).Run(context.Background(), "does-not-exist")
	require.Error(t, result.Err)
	assert.Equal(t, KindConfig, result.ErrorKind())
}

func TestRun_ExecutionErrorTakesPrecedence(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "fails", map[string]string{
		"command":         "echo hello; echo broken >&2; exit 1",
		"expected-STDOUT": "hello\n",
	})

	result := New(base).Run(context.Background(), "fails")
	require.Error(t, result.Err)
	assert.Equal(t, KindExecution, result.ErrorKind())
	assert.Contains(t, result.Err.Error(), "broken")
}

func TestRun_ExecutionErrorSkipsTreeValidation(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "fails", map[string]string{
		"command":          "printf hello > out.txt; exit 2",
		"expected-out.txt": "something else",
	})

	result := New(base).Run(context.Background(), "fails")
	assert.Equal(t, KindExecution, result.ErrorKind())
}

func TestRun_StdoutAndTree(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "both", map[string]string{
		"command":                   "mkdir -p Out/nested && printf 'a\\r\\nb\\r\\n' > Out/nested/f.txt && echo built",
		"expected-STDOUT":           "built\n",
		"EXPECTED-Out/nested/f.txt": "a\nb\n",
	})

	result := New(base).Run(context.Background(), "both")
	require.NoError(t, result.Err)
	assert.True(t, result.Pass)
}

func TestRun_Idempotent(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "twice", map[string]string{
		"command":            "mkdir dist && printf X > dist/a.js",
		"expected-dist/a.js": "X",
	})
	h := New(base)

	// mkdir without -p fails if the previous run's output survived.
	first := h.Run(context.Background(), "twice")
	second := h.Run(context.Background(), "twice")

	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Pass, second.Pass)
}

func TestRun_IdempotentFailure(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "fail-twice", map[string]string{
		"command":            "mkdir -p dist && printf Y > dist/a.js",
		"expected-dist/a.js": "X",
	})
	h := New(base)

	first := h.Run(context.Background(), "fail-twice")
	second := h.Run(context.Background(), "fail-twice")

	assert.False(t, first.Pass)
	assert.False(t, second.Pass)
	assert.Equal(t, first.ErrorKind(), second.ErrorKind())
}

func TestRun_Timeout(t *testing.T) {
	testutil.RequireShell(t)
	base := newFixture(t, "slow", map[string]string{"command": "sleep 5"})

	result := New(base, WithTimeout(100*time.Millisecond)).Run(context.Background(), "slow")
	require.Error(t, result.Err)
	assert.Equal(t, KindExecution, result.ErrorKind())
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

func TestRunAll_PreservesOrderAndIsolation(t *testing.T) {
	testutil.RequireShell(t)
	base := t.TempDir()
	cases := map[string]map[string]string{
		"a-pass": {"command": "echo a", "expected-STDOUT": "a\n"},
		"b-fail": {"command": "echo b", "expected-STDOUT": "nope\n"},
		"c-pass": {"command": "printf c > out.txt", "expected-out.txt": "c"},
		"d-conf": {"expected-out.txt": "d"},
	}
	for name, files := range cases {
		dir := filepath.Join(base, name)
		require.NoError(t, os.MkdirAll(dir, 0755))
		testutil.WriteTree(t, dir, files)
	}

	names := []string{"a-pass", "b-fail", "c-pass", "d-conf"}
	results := New(base, WithParallel(4)).RunAll(context.Background(), names)
	require.Len(t, results, 4)

	for i, name := range names {
		assert.Equal(t, name, results[i].Name)
	}
	assert.True(t, results[0].Pass)
	assert.Equal(t, KindStdoutMismatch, results[1].ErrorKind())
	assert.True(t, results[2].Pass)
	assert.Equal(t, KindConfig, results[3].ErrorKind())
}

func TestNew_BaseDir(t *testing.T) {
	base := t.TempDir()
	h := New(base, WithParallel(2))
	assert.Equal(t, base, h.BaseDir())
}

func TestCase_AsSubtest(t *testing.T) {
	testutil.RequireShell(t)
	base := t.TempDir()
	for name, files := range map[string]map[string]string{
		"test-echo":        {"command": "echo hello", "expected-STDOUT": "hello\n"},
		"test-echo-tofile": {"command": "printf hello > out.txt", "expected-out.txt": "hello"},
	} {
		dir := filepath.Join(base, name)
		require.NoError(t, os.MkdirAll(dir, 0755))
		testutil.WriteTree(t, dir, files)
	}

	h := New(base)
	t.Run("should compare STDOUT", h.Case("test-echo"))
	t.Run("should check a generated file", h.Case("test-echo-tofile"))
}
