package auth

import "time"

// SetNow overrides the session clock for tests.
func (s *Sessions) SetNow(now func() time.Time) {
	s.now = now
}
