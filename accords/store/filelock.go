package store

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock is an exclusive lock on a path.
type FileLock interface {
	// TryLockContext attempts to acquire the lock, retrying until ctx is done.
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)
	Unlock() error
}

// FileLockFactory creates FileLock instances.
type FileLockFactory interface {
	New(path string) FileLock
}

// FlockFactory locks through github.com/gofrs/flock.
type FlockFactory struct{}

// New implements FileLockFactory.
func (FlockFactory) New(path string) FileLock {
	return flock.New(path)
}
