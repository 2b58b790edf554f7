package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned by a load that lost to a newer selection.
var ErrSuperseded = errors.New("dashboard: selection superseded by a newer request")

// InsightStatus is the lifecycle of a viewer's insight page.
type InsightStatus string

const (
	StatusIdle    InsightStatus = "idle"
	StatusLoading InsightStatus = "loading"
	StatusReady   InsightStatus = "ready"
	StatusError   InsightStatus = "error"
)

// Snapshot is what a viewer currently sees. Set is only non-nil when ready.
type Snapshot struct {
	Status    InsightStatus `json:"status"`
	SKU       string        `json:"sku,omitempty"`
	Set       *InsightSet   `json:"set,omitempty"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Ticket identifies one selection attempt.
type Ticket struct {
	viewer string
	gen    uint64
	sku    string
}

type viewerState struct {
	gen      uint64
	cancel   context.CancelFunc
	snapshot Snapshot
}

// Selector tracks the latest product selection per viewer. Beginning a new
// selection cancels the previous in-flight one, and only the latest ticket may
// write the snapshot.
type Selector struct {
	mu     sync.Mutex
	seq    uint64
	now    func() time.Time
	states map[string]*viewerState
}

// NewSelector builds an empty selector.
func NewSelector() *Selector {
	return &Selector{now: time.Now, states: make(map[string]*viewerState)}
}

// Begin starts a selection of sku for viewer. The returned context is cancelled
// when a newer selection begins or when release is called.
func (s *Selector) Begin(ctx context.Context, viewer, sku string) (context.Context, Ticket, context.CancelFunc) {
	loadCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(viewer)
	if st.cancel != nil {
		st.cancel()
	}
	s.seq++
	st.gen = s.seq
	st.cancel = cancel
	st.snapshot = Snapshot{Status: StatusLoading, SKU: sku, UpdatedAt: s.now()}
	return loadCtx, Ticket{viewer: viewer, gen: st.gen, sku: sku}, cancel
}

// Current reports whether t is still the newest selection of its viewer.
func (s *Selector) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[t.viewer]
	return ok && st.gen == t.gen
}

// Commit stores the outcome of t. Stale tickets are rejected with ErrSuperseded.
func (s *Selector) Commit(t Ticket, set *InsightSet, loadErr error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[t.viewer]
	if !ok || st.gen != t.gen {
		return Snapshot{}, ErrSuperseded
	}
	snap := Snapshot{SKU: t.sku, UpdatedAt: s.now()}
	if loadErr != nil {
		snap.Status = StatusError
		snap.Error = errorMessage(loadErr)
	} else {
		snap.Status = StatusReady
		snap.Set = set
	}
	st.snapshot = snap
	st.cancel = nil
	return snap, nil
}

// Snapshot returns the viewer's current state.
func (s *Selector) Snapshot(viewer string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[viewer]
	if !ok {
		return Snapshot{Status: StatusIdle}
	}
	return st.snapshot
}

// Forget cancels any in-flight load and drops the viewer's state.
func (s *Selector) Forget(viewer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[viewer]; ok {
		if st.cancel != nil {
			st.cancel()
		}
		delete(s.states, viewer)
	}
}

func (s *Selector) state(viewer string) *viewerState {
	st, ok := s.states[viewer]
	if !ok {
		st = &viewerState{snapshot: Snapshot{Status: StatusIdle}}
		s.states[viewer] = st
	}
	return st
}

// errorMessage is the text shown in the data error panel. Per-card wrapping is
// dropped so the viewer sees the backend's own message.
func errorMessage(err error) string {
	var insightErr *InsightError
	if errors.As(err, &insightErr) && insightErr.Err != nil {
		return insightErr.Err.Error()
	}
	return err.Error()
}
