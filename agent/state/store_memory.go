package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scambait/honeynet/agent/contract"
)

// MemoryStore keeps sessions in a process-local map. Sessions are copied
// on the way in and out, so a request that fails mid-pipeline leaves the
// stored state untouched until its final Save.
type MemoryStore struct {
	locks *keyedLock

	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		locks:    newKeyedLock(lockTimeout),
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) GetOrCreate(_ context.Context, id string, now time.Time) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %v", contract.ErrValidation, ErrEmptySessionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[id]; ok {
		return existing.Clone(), nil
	}
	created := NewSession(id, now)
	m.sessions[id] = created
	return created.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrValidation, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	return m.locks.run(ctx, id, fn)
}

// Snapshot returns a copy of the stored session, or ErrSessionNotFound.
// Used by the read-only session inspection endpoint.
func (m *MemoryStore) Snapshot(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contract.ErrSessionNotFound, id)
	}
	return s.Clone(), nil
}
