package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// baseDirLock holds an exclusive lock for one base directory. Runs against
// the same base directory must not overlap: each one deletes the generated
// output the other is about to verify.
type baseDirLock struct {
	locker *flock.Flock
}

// lockFilename returns the lock file for baseDir. It lives in the temp
// directory so fixture trees are never written to.
func lockFilename(baseDir string) (string, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), "testcli-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

// lockBaseDir blocks until the lock for baseDir is held or ctx is done.
func lockBaseDir(ctx context.Context, baseDir string) (*baseDirLock, error) {
	filename, err := lockFilename(baseDir)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", baseDir, err)
	}

	locker := flock.New(filename)
	ok, err := locker.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		_ = locker.Close()
		return nil, fmt.Errorf("lock %s: %w", baseDir, err)
	}
	if !ok {
		_ = locker.Close()
		return nil, fmt.Errorf("lock %s: not acquired", baseDir)
	}
	return &baseDirLock{locker: locker}, nil
}

// Unlock releases the lock. The lock file itself is left in place.
func (l *baseDirLock) Unlock() {
	_ = l.locker.Close()
}
