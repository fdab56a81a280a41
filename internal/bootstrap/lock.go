package bootstrap

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is hidden so inbox discovery never picks it up.
const LockFileName = ".organizer.lock"

var ErrRunInProgress = errors.New("another organizer run holds the workspace lock")

// AcquireRunLock takes the exclusive workspace lock without waiting.
func AcquireRunLock(workspace string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(workspace, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, lock.Path())
	}
	return lock, nil
}
