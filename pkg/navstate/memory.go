package navstate

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Persister intended for tests and for
// sessions that should not outlive the process.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]NavState
	writes int
	opts   options
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{states: make(map[string]NavState), opts: buildOptions(opts)}
}

// Read returns a copy of the stored snapshot, or nil.
func (m *MemoryStore) Read(_ context.Context, contextID string) (*NavState, error) {
	m.mu.RLock()
	s, ok := m.states[contextID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	cp := cloneState(s)
	return m.opts.fresh(&cp), nil
}

// Write stores a copy of state.
func (m *MemoryStore) Write(_ context.Context, state NavState) error {
	if state.ContextID == "" {
		return ErrEmptyContext
	}
	m.mu.Lock()
	m.states[state.ContextID] = cloneState(state)
	m.writes++
	m.mu.Unlock()
	return nil
}

// Writes returns how many writes the store has accepted.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func cloneState(s NavState) NavState {
	out := s
	out.ExpandedKeys = append([]string(nil), s.ExpandedKeys...)
	out.SelectedKeys = append([]string(nil), s.SelectedKeys...)
	return out
}
