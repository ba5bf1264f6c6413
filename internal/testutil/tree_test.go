package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteTree(t *testing.T) {
	dir := t.TempDir()
	WriteTree(t, dir, map[string]string{
		"command":              "echo hello",
		"expected-dist/a/b.js": "b\n",
	})

	assert.Equal(t, "echo hello", ReadFile(t, filepath.Join(dir, "command")))
	assert.Equal(t, "b\n", ReadFile(t, filepath.Join(dir, "expected-dist", "a", "b.js")))
}
