package drafts

import (
	"context"
	"sync"

	"github.com/jonathan/design-coach/internal/types"
)

// MemoryStore keeps encoded drafts in memory. Drafts are stored serialized, so callers never
// share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[Key][]byte
	now    Clock
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[Key][]byte), now: utcNow}
}

// WithClock replaces the clock used to stamp saved drafts.
func (s *MemoryStore) WithClock(now Clock) *MemoryStore {
	s.now = now
	return s
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key Key) (*types.Draft, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.drafts[key]
	s.mu.RUnlock()
	if !ok {
		return types.NewDraft(), nil
	}
	return Decode(data), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, key Key, draft *types.Draft) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := Encode(Prepare(draft, s.now()))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.drafts[key] = data
	s.mu.Unlock()
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.drafts, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored drafts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
