// Package lockutil takes an OS-level advisory exclusive lock on an image
// file's companion "<image>.lock" file for the duration of one command; the
// image file itself is not locked. The journal protocol itself
// assumes single-process, single-writer access; this lock only guards
// against the operator accidentally running two invocations against the
// same image at once; it changes no on-disk semantics.
package lockutil

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go"
)

// ErrLocked is wrapped into the error returned when the image is already
// locked by another process after all retries are exhausted.
var ErrLocked = errors.New("lockutil: image is locked by another process")

// Lock represents a held advisory lock, released by calling Release.
type Lock struct {
	fl *fileLock
}

// Acquire takes an exclusive advisory lock on path, retrying briefly with
// backoff in case another short-lived invocation (e.g. a scripted
// create/install pair) is mid-command.
func Acquire(path string) (*Lock, error) {
	var fl *fileLock
	err := retry.Do(
		func() error {
			l, err := lockFile(path)
			if err != nil {
				return err
			}
			fl = l
			return nil
		},
		retry.Attempts(5),
		retry.Delay(20*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return &Lock{fl: fl}, nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.unlock()
}

// openLockFile opens (creating if needed) path's companion lock file. It is
// the shared first step of every platform's lockFile; each platform then
// only has to supply the actual OS-specific lock syscall.
func openLockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("lockutil: cannot open lock file: %w", err)
	}
	return f, nil
}

// closeAndRemoveLockFile is the shared teardown every platform's unlock
// performs after releasing its OS-specific lock.
func closeAndRemoveLockFile(f *os.File) error {
	name := f.Name()
	err := f.Close()
	os.Remove(name)
	return err
}
