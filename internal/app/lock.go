package app

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process mirrors the same root.
var ErrAlreadyRunning = errors.New("another s3mirror instance is already mirroring this directory")

// instanceLock keeps two processes from mirroring the same root.
type instanceLock struct {
	flock *flock.Flock
}

// lockPath returns <baseDir>/<hash of root>.lock.
func lockPath(baseDir, root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(baseDir, hex.EncodeToString(sum[:8])+".lock")
}

// acquireLock takes the lock for root without blocking.
func acquireLock(baseDir, root string) (*instanceLock, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating base directory %s: %w", baseDir, err)
	}

	l := flock.New(lockPath(baseDir, root))
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", l.Path(), err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	return &instanceLock{flock: l}, nil
}

// release unlocks and removes the lock file.
func (l *instanceLock) release() error {
	if l == nil || !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}
	return os.Remove(l.flock.Path())
}
