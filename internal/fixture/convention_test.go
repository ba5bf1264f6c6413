package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testcli/internal/testutil"
)

func TestIsExpectedMarker(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"expected-foo", true},
		{"EXPECTED-Foo", true},
		{"Expected-FOO", true},
		{"expected-dist", true},
		{"expected-out.txt", true},
		{"expected-STDOUT", false},
		{"expected-stdout", false},
		{"EXPECTED-StdOut", false},
		{"expected-stdout.txt", true},
		{"expected-", false},
		{"expected", false},
		{"command", false},
		{"dist", false},
		{"not-expected-foo", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpectedMarker(tt.name))
		})
	}
}

func TestIsStdoutSentinel(t *testing.T) {
	assert.True(t, IsStdoutSentinel("expected-STDOUT"))
	assert.True(t, IsStdoutSentinel("expected-stdout"))
	assert.True(t, IsStdoutSentinel("Expected-Stdout"))
	assert.False(t, IsStdoutSentinel("expected-stdout2"))
	assert.False(t, IsStdoutSentinel("STDOUT"))
}

func TestGeneratedName_PreservesCase(t *testing.T) {
	assert.Equal(t, "Foo", GeneratedName("EXPECTED-Foo"))
	assert.Equal(t, "foo", GeneratedName("expected-foo"))
	assert.Equal(t, "FOO", GeneratedName("Expected-FOO"))
	assert.Equal(t, "command", GeneratedName("command"))
	assert.Equal(t, "expected-STDOUT", GeneratedName("expected-STDOUT"))
}

func TestGeneratedPath(t *testing.T) {
	root := filepath.Join("base", "fixture")

	tests := []struct {
		name     string
		expected string
		want     string
	}{
		{"top-level file", "expected-out.txt", "out.txt"},
		{"top-level dir", "expected-dist", "dist"},
		{"nested file", "expected-dist/sub/a.js", "dist/sub/a.js"},
		{"mixed case marker", "Expected-Dist/a.js", "Dist/a.js"},
		{"nested marker untouched", "expected-dist/expected-a.js", "dist/expected-a.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GeneratedPath(root, filepath.Join(root, filepath.FromSlash(tt.expected)))
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, filepath.FromSlash(tt.want)), got)
		})
	}
}

func TestGeneratedPath_AncestorContainsMarker(t *testing.T) {
	root := filepath.Join("tmp", "expected-cases", "fixture")
	got, err := GeneratedPath(root, filepath.Join(root, "expected-out.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("tmp", "expected-cases", "fixture", "out.txt"), got)
}

func TestGeneratedPath_NotBelowMarker(t *testing.T) {
	root := filepath.Join("base", "fixture")

	_, err := GeneratedPath(root, filepath.Join(root, "src", "a.js"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not below an expected entry")

	_, err = GeneratedPath(root, filepath.Join(root, "expected-STDOUT"))
	require.Error(t, err)
}

func TestExpectedEntries(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"command":             "true",
		"expected-STDOUT":     "",
		"expected-out.txt":    "x",
		"EXPECTED-Dist/a.js":  "a",
		"src/main.js":         "",
		"expected-notes/b.md": "b",
	})

	names, err := ExpectedEntries(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"expected-out.txt", "EXPECTED-Dist", "expected-notes"}, names)
}

func TestExpectedEntries_MissingDir(t *testing.T) {
	_, err := ExpectedEntries(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindStdoutSentinel(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteTree(t, dir, map[string]string{"command": "true"})

		_, ok, err := findStdoutSentinel(dir)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lowercase spelling", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteTree(t, dir, map[string]string{"expected-stdout": "hi\n"})

		name, ok, err := findStdoutSentinel(dir)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "expected-stdout", name)
	})

	t.Run("directory is ignored", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "expected-STDOUT"), 0755))

		_, ok, err := findStdoutSentinel(dir)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
