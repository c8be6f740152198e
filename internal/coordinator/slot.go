// Package coordinator sequences requests per family so that only the most
// recently issued request can update state, whatever order responses arrive in.
package coordinator

import (
	"context"
	"sync/atomic"
)

// Slot tracks the latest request of one family: a monotonic sequence number
// plus the cancel func of the request currently in flight.
//
// Begin and Cancel must be called from the owning event loop. IsCurrent may
// be called from any goroutine.
type Slot struct {
	seq    atomic.Uint64
	cancel context.CancelFunc
}

// Begin supersedes the previous request: it cancels the in-flight context,
// bumps the sequence number and returns a fresh context for the new request.
func (s *Slot) Begin(parent context.Context) (uint64, context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	seq := s.seq.Add(1)
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return seq, ctx
}

// Invalidate cancels the in-flight request and bumps the sequence number
// without starting a new request, so any pending completion is stale.
func (s *Slot) Invalidate() {
	s.Cancel()
	s.seq.Add(1)
}

// Cancel cancels the in-flight request, if any.
func (s *Slot) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Current returns the sequence number of the latest request.
func (s *Slot) Current() uint64 {
	return s.seq.Load()
}

// IsCurrent reports whether seq identifies the latest request.
func (s *Slot) IsCurrent(seq uint64) bool {
	return s.seq.Load() == seq
}
