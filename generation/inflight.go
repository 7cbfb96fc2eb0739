package generation

import (
	"context"
	"sync"
)

// slot is the single in-flight operation handle of a client. A new call must
// invalidate the outstanding one before taking its place (last write wins),
// and only the operation that still owns the slot may clear the busy state:
// a stale settlement arriving after a newer call started leaves the newer
// call's state alone.
type slot struct {
	mu      sync.Mutex
	seq     uint64
	current uint64
	cancel  context.CancelFunc
}

// begin cancels the outstanding operation, if any, and registers a new one.
// The returned token identifies the operation for end.
func (s *slot) begin(cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	s.current = s.seq
	s.cancel = cancel
	return s.seq
}

// end clears the busy state and reports true when op still owns the slot.
func (s *slot) end(op uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != op {
		return false
	}
	s.current = 0
	s.cancel = nil
	return true
}

// cancelCurrent aborts the in-flight operation, if any.
func (s *slot) cancelCurrent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// busy reports whether an operation is in flight.
func (s *slot) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != 0
}
