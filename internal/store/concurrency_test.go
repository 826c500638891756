package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"oodle/internal/oodle"
	"oodle/internal/store"
	"oodle/internal/testutil"
)

const testLockTimeout = 50 * time.Millisecond

// Contract: N concurrent creates against one empty oodle produce exactly N
// messages with ids 1..N in some serialized order, and the file parses.
func TestConcurrentCreatesProduceSequentialIDs(t *testing.T) {
	t.Parallel()

	const workers = 16

	dir := t.TempDir()

	s, err := store.Open(dir, store.WithClock(testutil.NewClock().Now))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	var waitGroup sync.WaitGroup

	ids := make(chan int, workers)

	for range workers {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			msg, createErr := s.Create(context.Background(), "shared", "racing")
			if createErr != nil {
				t.Errorf("create: %v", createErr)

				return
			}

			ids <- msg.ID
		}()
	}

	waitGroup.Wait()
	close(ids)

	seen := make(map[int]bool, workers)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}

		seen[id] = true
	}

	for id := 1; id <= workers; id++ {
		if !seen[id] {
			t.Errorf("missing id %d", id)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "shared"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	msgs, err := oodle.Decode(data)
	if err != nil {
		t.Fatalf("final file does not parse: %v", err)
	}

	if len(msgs) != workers {
		t.Errorf("len(msgs) = %d, want %d", len(msgs), workers)
	}
}

// Contract: distinct files never contend with one another.
func TestDistinctFilesDoNotContend(t *testing.T) {
	t.Parallel()

	s, err := store.Open(t.TempDir(),
		store.WithClock(testutil.NewClock().Now),
		store.WithLockTimeout(testLockTimeout))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	var waitGroup sync.WaitGroup

	for _, name := range []string{"one", "two", "three", "four"} {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			for range 5 {
				_, createErr := s.Create(context.Background(), name, "entry")
				if createErr != nil {
					t.Errorf("create %s: %v", name, createErr)

					return
				}
			}
		}()
	}

	waitGroup.Wait()
}

// Contract: a write blocked behind another process's exclusive flock fails
// with ErrLockTimeout once the configured wait elapses.
func TestLockTimeoutWhenExclusiveFlockHeld(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	s, err := store.Open(dir,
		store.WithClock(testutil.NewClock().Now),
		store.WithLockTimeout(testLockTimeout))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	_, err = s.Create(context.Background(), "journal", "hello")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Hold the flock the way a second process would.
	lockPath := filepath.Join(dir, ".locks", "journal.lock")

	lockFile, err := os.OpenFile(lockPath, os.O_RDWR, 0o600)
	if err != nil {
		t.Fatalf("open lock file: %v", err)
	}

	defer func() { _ = lockFile.Close() }()

	err = unix.Flock(int(lockFile.Fd()), unix.LOCK_EX)
	if err != nil {
		t.Fatalf("flock: %v", err)
	}

	defer func() { _ = unix.Flock(int(lockFile.Fd()), unix.LOCK_UN) }()

	_, err = s.Create(context.Background(), "journal", "blocked")
	if !errors.Is(err, store.ErrLockTimeout) {
		t.Errorf("create under held flock = %v, want ErrLockTimeout", err)
	}

	// Reads take a shared flock, so an exclusive holder blocks them too.
	_, err = s.Get(context.Background(), "journal", 1)
	if !errors.Is(err, store.ErrLockTimeout) {
		t.Errorf("get under held flock = %v, want ErrLockTimeout", err)
	}
}

// Contract: cancelling a caller blocked behind a long-running mutation
// returns the context error and the guard stays usable afterwards.
func TestCancelledWaiterReleasesCleanly(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	started := make(chan struct{})
	release := make(chan struct{})

	var block atomic.Bool

	// The store reads the clock while holding the file's guard, so a
	// blocking clock simulates a stuck operation.
	s, err := store.Open(t.TempDir(), store.WithClock(func() time.Time {
		if block.CompareAndSwap(true, false) {
			close(started)
			<-release
		}

		return clock.Now()
	}))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	_, err = s.Create(context.Background(), "journal", "hello")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var waitGroup sync.WaitGroup

	waitGroup.Add(1)

	block.Store(true)

	go func() {
		defer waitGroup.Done()

		_, updateErr := s.Update(context.Background(), "journal", 1, "slow")
		if updateErr != nil {
			t.Errorf("blocking update: %v", updateErr)
		}
	}()

	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Create(ctx, "journal", "cancelled")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cancelled create = %v, want DeadlineExceeded", err)
	}

	close(release)
	waitGroup.Wait()

	// Guard was released on every path; a fresh operation succeeds.
	msg, err := s.Create(context.Background(), "journal", "after")
	if err != nil {
		t.Fatalf("create after cancellation: %v", err)
	}

	if msg.Content != "after" {
		t.Errorf("msg = %+v", msg)
	}
}
