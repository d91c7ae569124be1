package checkpoint

import (
	"context"
	"sort"
	"sync"

	"github.com/verity-labs/chorus/internal/core"
)

// MemoryStore keeps checkpoints in process memory. State is lost on
// process exit — acceptable for tests and single-run CLI use, and the
// documented limitation for everything else. Each instance is
// independent; inject one per test to isolate sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*core.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[core.SessionID]*core.Session),
	}
}

// Write persists a full session snapshot.
func (m *MemoryStore) Write(_ context.Context, session *core.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session.Clone()
	return nil
}

// Update applies a named-node delta under the store lock, so no
// concurrent Read observes a half-applied update.
func (m *MemoryStore) Update(_ context.Context, id core.SessionID, delta core.Delta, stage core.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[id]
	if !ok {
		return core.ErrSessionNotFound(id)
	}

	next := current.Clone()
	if err := applyDelta(next, delta, stage); err != nil {
		return err
	}
	m.sessions[id] = next
	return nil
}

// Read returns a deep copy of the current session snapshot.
func (m *MemoryStore) Read(_ context.Context, id core.SessionID) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound(id)
	}
	return session.Clone(), nil
}

// List returns the IDs of all checkpointed sessions.
func (m *MemoryStore) List(_ context.Context) ([]core.SessionID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]core.SessionID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
