package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/testcli/internal/testutil"
)

// newFixture creates a fixture directory name under a fresh base directory
// and returns the base directory.
func newFixture(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	testutil.WriteTree(t, dir, files)
	return base
}
