package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// locksDirName is the subdirectory for lock files.
// Using a subdirectory keeps lock files out of directory listings of the
// oodle files themselves.
const locksDirName = ".locks"

// lockTable maps oodle names to their exclusive-access guards. It is owned
// by a Store instance rather than living in package state, so two stores on
// different directories never share guards.
type lockTable struct {
	mu     sync.Mutex
	guards map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{guards: make(map[string]chan struct{})}
}

// guardFor returns the guard channel for name, creating it on first use.
// Guards are never removed; the table is bounded by the number of distinct
// files the store has touched.
func (t *lockTable) guardFor(name string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	guard, ok := t.guards[name]
	if !ok {
		guard = make(chan struct{}, 1)
		t.guards[name] = guard
	}

	return guard
}

// acquire blocks until the guard for name is free, the context is done, or
// the deadline passes. A zero deadline means wait until cancellation.
// The returned release function must be called exactly once.
func (t *lockTable) acquire(ctx context.Context, name string, deadline time.Time) (func(), error) {
	guard := t.guardFor(name)

	var timeoutCh <-chan time.Time

	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()

		timeoutCh = timer.C
	}

	select {
	case guard <- struct{}{}:
		return func() { <-guard }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquiring lock for %s: %w", name, ctx.Err())
	case <-timeoutCh:
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
	}
}

// fileLock is a held flock on a lock file. It guards the oodle file against
// other processes; in-process serialization comes from the lockTable.
type fileLock struct {
	file *os.File
}

// acquireFileLock takes a flock on dir/.locks/<name>.lock, shared for reads
// and exclusive for writes. Non-blocking attempts retry until the deadline;
// a zero deadline blocks indefinitely. The deadline is shared with the
// in-process guard so one operation never waits more than the lock timeout
// in total.
func acquireFileLock(dir, name string, shared bool, deadline time.Time) (*fileLock, error) {
	locksDir := filepath.Join(dir, locksDirName)

	mkdirErr := os.MkdirAll(locksDir, dirPerms)
	if mkdirErr != nil {
		return nil, fmt.Errorf("creating locks dir: %w", mkdirErr)
	}

	lockPath := filepath.Join(locksDir, name+".lock")

	file, openErr := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerms) //nolint:gosec // name is validated by the store
	if openErr != nil {
		return nil, fmt.Errorf("opening lock file: %w", openErr)
	}

	how := unix.LOCK_EX
	if shared {
		how = unix.LOCK_SH
	}

	if deadline.IsZero() {
		flockErr := unix.Flock(int(file.Fd()), how)
		if flockErr != nil {
			_ = file.Close()

			return nil, fmt.Errorf("flock: %w", flockErr)
		}

		return &fileLock{file: file}, nil
	}

	const retryInterval = 10 * time.Millisecond

	for {
		flockErr := unix.Flock(int(file.Fd()), how|unix.LOCK_NB)
		if flockErr == nil {
			return &fileLock{file: file}, nil
		}

		if time.Now().After(deadline) {
			_ = file.Close()

			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
		}

		time.Sleep(retryInterval)
	}
}

// release drops the flock and closes the lock file.
func (l *fileLock) release() {
	if l.file != nil {
		_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
		_ = l.file.Close()
		l.file = nil
	}
}
