package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

var _ ports.CheckpointStore = (*Store)(nil)

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Checkpoint
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Checkpoint),
	}
}

// Save persists a deep copy of the checkpoint.
func (s *Store) Save(ctx context.Context, threadID string, cp *domain.Checkpoint) error {
	copied := cp.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[threadID] = copied
	return nil
}

// Load retrieves a copy of the checkpoint so callers cannot mutate the store.
func (s *Store) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[threadID]
	if !ok {
		return nil, domain.ErrCheckpointNotFound
	}
	return cp.Clone(), nil
}

// Delete removes the checkpoint.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, threadID)
	return nil
}

// List returns the stored thread ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
