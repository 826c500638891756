package store

import "errors"

// ErrNotFound reports that a referenced oodle or message id does not exist.
// It is a client-correctable error, not a system fault.
var ErrNotFound = errors.New("not found")

// ErrLockTimeout reports that the per-file lock could not be acquired
// within the configured timeout.
var ErrLockTimeout = errors.New("lock timeout")

// ErrInvalidName reports an oodle name that does not resolve to a plain
// file inside the store directory.
var ErrInvalidName = errors.New("invalid oodle name")
