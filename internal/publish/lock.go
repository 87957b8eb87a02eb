package publish

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

const lockRetryInterval = 50 * time.Millisecond

// Locker acquires advisory per-file locks. The retry/timeout contract is
// fixed; implementations only vary the underlying primitive.
type Locker interface {
	// Acquire takes an exclusive advisory lock on path, polling a
	// non-blocking attempt until timeout, after which it fails with
	// apperr.ErrLockTimeout.
	Acquire(path string, timeout time.Duration) (Unlocker, error)
}

// Unlocker releases a held lock.
type Unlocker interface {
	Release()
}

// FlockLocker implements Locker with flock(2) on a sidecar .lock file.
// Using a separate file keeps the lock independent of the atomic rename
// that rewrites the article itself.
type FlockLocker struct{}

type fileLock struct {
	file *os.File
}

// Acquire opens path+".lock" and polls a non-blocking exclusive flock.
func (FlockLocker) Acquire(path string, timeout time.Duration) (Unlocker, error) {
	lockPath := path + ".lock"

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("publish: open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		flockErr := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if flockErr == nil {
			return &fileLock{file: file}, nil
		}
		if time.Now().After(deadline) {
			_ = file.Close()
			return nil, fmt.Errorf("publish: %s: %w", path, apperr.ErrLockTimeout)
		}
		time.Sleep(lockRetryInterval)
	}
}

// Release drops the flock and closes the lock file.
func (l *fileLock) Release() {
	if l.file != nil {
		_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
		_ = l.file.Close()
	}
}
