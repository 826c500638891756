// Package store owns the load-mutate-persist cycle for oodle files.
//
// All state is file-resident: every operation reads the target file, applies
// one change in memory, and atomically replaces the file's contents. There
// is no cache or index to invalidate; the lock table keyed by file name is
// the only in-process state.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"oodle/internal/oodle"
)

const (
	dirPerms  = 0o750
	filePerms = 0o600
)

// DefaultLockTimeout bounds how long an operation waits for a contended
// file before failing with [ErrLockTimeout].
const DefaultLockTimeout = 5 * time.Second

// Store applies create/get/update operations to oodle files in one
// directory. Methods are safe for concurrent use; mutations against the
// same file are totally ordered by lock acquisition.
type Store struct {
	dir         string
	locks       *lockTable
	lockTimeout time.Duration
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout sets the maximum wait for a contended file.
// A zero or negative duration waits until context cancellation.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Store) { s.lockTimeout = timeout }
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open prepares a store rooted at dir, creating the directory if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("open store: directory is empty")
	}

	dir = filepath.Clean(dir)

	mkdirErr := os.MkdirAll(dir, dirPerms)
	if mkdirErr != nil {
		return nil, fmt.Errorf("open store: create directory: %w", mkdirErr)
	}

	store := &Store{
		dir:         dir,
		locks:       newLockTable(),
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Create appends a new message to the named oodle and returns it.
// The file is created on first append. Created and Modified are both set
// to the operation time; the id comes from [oodle.NextID] computed while
// holding the file's lock, so concurrent creates never collide.
func (s *Store) Create(ctx context.Context, name, content string) (oodle.Message, error) {
	var msg oodle.Message

	err := s.withFile(ctx, name, false, func(path string) error {
		msgs, loadErr := s.load(name, path)
		if loadErr != nil && !errors.Is(loadErr, ErrNotFound) {
			return loadErr
		}

		now := s.now().UTC().Truncate(time.Second)
		msg = oodle.Message{
			ID:       oodle.NextID(msgs),
			Created:  now,
			Modified: now,
			Content:  content,
		}

		return s.persist(path, append(msgs, msg))
	})

	return msg, err
}

// Get returns the message with the given id from the named oodle.
// Fails with [ErrNotFound] if the oodle or the id does not exist.
func (s *Store) Get(ctx context.Context, name string, id int) (oodle.Message, error) {
	var msg oodle.Message

	err := s.withFile(ctx, name, true, func(path string) error {
		msgs, loadErr := s.load(name, path)
		if loadErr != nil {
			return loadErr
		}

		found, findErr := findMessage(msgs, name, id)
		if findErr != nil {
			return findErr
		}

		msg = *found

		return nil
	})

	return msg, err
}

// Update rewrites the content of one message in place. ID, Created, and
// position in the file are unchanged; Modified is set to the operation
// time. Fails with [ErrNotFound] if the oodle or the id does not exist,
// leaving the file untouched.
func (s *Store) Update(ctx context.Context, name string, id int, content string) (oodle.Message, error) {
	var msg oodle.Message

	err := s.withFile(ctx, name, false, func(path string) error {
		msgs, loadErr := s.load(name, path)
		if loadErr != nil {
			return loadErr
		}

		found, findErr := findMessage(msgs, name, id)
		if findErr != nil {
			return findErr
		}

		found.Content = content
		found.Modified = s.now().UTC().Truncate(time.Second)

		persistErr := s.persist(path, msgs)
		if persistErr != nil {
			return persistErr
		}

		msg = *found

		return nil
	})

	return msg, err
}

// Raw returns the named oodle's bytes exactly as stored on disk, read
// under the shared lock so a concurrent writer cannot be observed
// mid-replace. Fails with [ErrNotFound] if the oodle does not exist.
func (s *Store) Raw(ctx context.Context, name string) ([]byte, error) {
	var data []byte

	err := s.withFile(ctx, name, true, func(path string) error {
		var readErr error

		data, readErr = os.ReadFile(path) //nolint:gosec // path is resolved from a validated name
		if readErr != nil {
			if os.IsNotExist(readErr) {
				return fmt.Errorf("%w: oodle %s", ErrNotFound, name)
			}

			return fmt.Errorf("reading oodle %s: %w", name, readErr)
		}

		return nil
	})

	return data, err
}

// withFile runs op with the named file's guard held. The in-process guard
// serializes goroutines; the flock serializes against other processes
// (shared for reads, exclusive for writes). Both are released on every
// exit path.
func (s *Store) withFile(ctx context.Context, name string, shared bool, op func(path string) error) error {
	if ctx == nil {
		return errors.New("store: context is nil")
	}

	path, resolveErr := s.resolve(name)
	if resolveErr != nil {
		return resolveErr
	}

	// One deadline covers both the in-process guard and the flock, so the
	// configured timeout bounds the whole acquisition rather than each
	// stage separately.
	var deadline time.Time
	if s.lockTimeout > 0 {
		deadline = time.Now().Add(s.lockTimeout)
	}

	release, lockErr := s.locks.acquire(ctx, name, deadline)
	if lockErr != nil {
		return lockErr
	}
	defer release()

	flock, flockErr := acquireFileLock(s.dir, name, shared, deadline)
	if flockErr != nil {
		return flockErr
	}
	defer flock.release()

	return op(path)
}

// resolve validates name and returns its absolute path. Names must be
// plain file names: no separators, no dot prefix (reserved for the store's
// own bookkeeping like .locks).
func (s *Store) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return filepath.Join(s.dir, name), nil
}

// load reads and decodes the named file. A missing file maps to
// [ErrNotFound]; callers that treat absence as an empty oodle (Create)
// check for it explicitly.
func (s *Store) load(name, path string) ([]oodle.Message, error) {
	data, readErr := os.ReadFile(path) //nolint:gosec // path is resolved from a validated name
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, fmt.Errorf("%w: oodle %s", ErrNotFound, name)
		}

		return nil, fmt.Errorf("reading oodle %s: %w", name, readErr)
	}

	msgs, decodeErr := oodle.Decode(data)
	if decodeErr != nil {
		return nil, fmt.Errorf("oodle %s: %w", name, decodeErr)
	}

	return msgs, nil
}

// persist encodes msgs and atomically replaces the file. A failure before
// the rename leaves the previous contents exactly as they were.
func (s *Store) persist(path string, msgs []oodle.Message) error {
	writeErr := atomic.WriteFile(path, bytes.NewReader(oodle.Encode(msgs)))
	if writeErr != nil {
		return fmt.Errorf("writing oodle: %w", writeErr)
	}

	chmodErr := os.Chmod(path, filePerms)
	if chmodErr != nil {
		return fmt.Errorf("setting oodle permissions: %w", chmodErr)
	}

	return nil
}

func findMessage(msgs []oodle.Message, name string, id int) (*oodle.Message, error) {
	for i := range msgs {
		if msgs[i].ID == id {
			return &msgs[i], nil
		}
	}

	return nil, fmt.Errorf("%w: message %d in oodle %s", ErrNotFound, id, name)
}
