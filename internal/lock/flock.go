// Package lock wraps flock(2) for the two places the relay needs exclusive
// file access: appending to the event log and guarding a single running instance.
package lock

import (
	"fmt"
	"os"
	"syscall"
)

// Exclusive blocks until an exclusive advisory lock is held on f.
// The returned func releases it; it does not close f.
func Exclusive(f *os.File) (func() error, error) {
	if f == nil {
		return nil, fmt.Errorf("lock: nil file")
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return nil, fmt.Errorf("lock %s: %w", f.Name(), err)
	}
	return func() error {
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

// Shared blocks until a shared advisory lock is held on f, letting readers
// wait out an in-flight Exclusive holder.
func Shared(f *os.File) (func() error, error) {
	if f == nil {
		return nil, fmt.Errorf("lock: nil file")
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH); err != nil {
		return nil, fmt.Errorf("lock %s: %w", f.Name(), err)
	}
	return func() error {
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
