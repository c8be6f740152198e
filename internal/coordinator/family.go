package coordinator

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonandersen/emkt/pkg/marketapi"
)

// Family names.
const (
	FamilyContracts  = "contracts"
	FamilyComparison = "comparison"
	FamilyPortfolio  = "portfolio"
)

// Fetcher performs the blocking request of a family.
type Fetcher[P, T any] func(ctx context.Context, params P) (T, error)

// Settlement is the outcome of one issued request, tagged with its sequence number.
type Settlement[T any] struct {
	Family  string
	Seq     uint64
	Data    T
	Err     error
	Aborted bool
}

// Ticket is an issued request that has not run yet. Run blocks and may be
// called on any goroutine; its Settlement must be handed back to the family
// on the event loop.
type Ticket[T any] struct {
	Family string
	Seq    uint64
	run    func() Settlement[T]
}

// Run performs the request.
func (t Ticket[T]) Run() Settlement[T] {
	return t.run()
}

// Family is an independent request/response/state lineage. All methods
// except Ticket.Run must be called from a single event loop.
type Family[P, T any] struct {
	name     string
	fallback string
	fetch    Fetcher[P, T]
	logger   *zap.Logger

	slot      Slot
	params    P
	hasParams bool
	inFlight  bool
	result    Result[T]
}

// NewFamily creates a family. fallback is the message shown when a failure
// carries no text of its own.
func NewFamily[P, T any](name, fallback string, fetch Fetcher[P, T], logger *zap.Logger) *Family[P, T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Family[P, T]{
		name:     name,
		fallback: fallback,
		fetch:    fetch,
		logger:   logger.With(zap.String("family", name)),
		result:   Idle[T](),
	}
}

// Name returns the family name.
func (f *Family[P, T]) Name() string {
	return f.name
}

// Issue supersedes any in-flight request and returns a ticket for a new one.
// The committed result switches to loading.
func (f *Family[P, T]) Issue(ctx context.Context, params P) Ticket[T] {
	f.result = Loading[T]()
	return f.start(ctx, params)
}

// IssueKeep is Issue without clearing committed data, so the previous data
// stays visible while the request is in flight. Any other result switches to
// loading as with Issue.
func (f *Family[P, T]) IssueKeep(ctx context.Context, params P) Ticket[T] {
	if !f.result.HasData() {
		f.result = Loading[T]()
	}
	return f.start(ctx, params)
}

// Retry re-issues the last request with identical parameters.
func (f *Family[P, T]) Retry(ctx context.Context) Ticket[T] {
	return f.Issue(ctx, f.params)
}

func (f *Family[P, T]) start(ctx context.Context, params P) Ticket[T] {
	seq, reqCtx := f.slot.Begin(ctx)
	f.params = params
	f.hasParams = true
	f.inFlight = true

	fetch := f.fetch
	name := f.name
	return Ticket[T]{
		Family: name,
		Seq:    seq,
		run: func() Settlement[T] {
			data, err := fetch(reqCtx, params)
			s := Settlement[T]{Family: name, Seq: seq, Data: data, Err: err}
			if reqCtx.Err() != nil {
				s.Aborted = true
			}
			return s
		},
	}
}

// Settle commits s if it belongs to the latest request and was not aborted.
// It reports whether the result was replaced.
func (f *Family[P, T]) Settle(s Settlement[T]) bool {
	if s.Aborted {
		f.logger.Debug("dropping aborted response", zap.Uint64("seq", s.Seq))
		return false
	}
	if !f.slot.IsCurrent(s.Seq) {
		f.logger.Debug("dropping stale response",
			zap.Uint64("seq", s.Seq),
			zap.Uint64("current", f.slot.Current()))
		return false
	}

	f.inFlight = false
	f.slot.Cancel()
	if s.Err != nil {
		f.result = Failed[T](marketapi.Message(s.Err, f.fallback))
		f.logger.Debug("request failed", zap.Uint64("seq", s.Seq), zap.Error(s.Err))
		return true
	}
	f.result = Succeeded(s.Data)
	return true
}

// Reset cancels any in-flight request, makes its eventual completion stale
// and returns the family to idle.
func (f *Family[P, T]) Reset() {
	f.slot.Invalidate()
	f.inFlight = false
	f.result = Idle[T]()
}

// Close cancels the in-flight request without touching the result.
func (f *Family[P, T]) Close() {
	f.slot.Cancel()
}

// Result returns the committed result.
func (f *Family[P, T]) Result() Result[T] {
	return f.result
}

// InFlight reports whether the latest issued request has not settled yet.
func (f *Family[P, T]) InFlight() bool {
	return f.inFlight
}

// IsCurrent reports whether seq identifies the latest issued request.
func (f *Family[P, T]) IsCurrent(seq uint64) bool {
	return f.slot.IsCurrent(seq)
}

// LastParams returns the parameters of the last issued request.
func (f *Family[P, T]) LastParams() (P, bool) {
	return f.params, f.hasParams
}

// Fallback returns the message used for failures that carry no text.
func (f *Family[P, T]) Fallback() string {
	return f.fallback
}
