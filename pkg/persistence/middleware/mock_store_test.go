package middleware_test

import (
	"context"
	"sort"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.Checkpoint
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Checkpoint),
	}
}

func (s *MockStore) Save(ctx context.Context, threadID string, cp *domain.Checkpoint) error {
	s.data[threadID] = cp.Clone()
	return nil
}

func (s *MockStore) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	cp, ok := s.data[threadID]
	if !ok {
		return nil, domain.ErrCheckpointNotFound
	}
	return cp.Clone(), nil
}

func (s *MockStore) Delete(ctx context.Context, threadID string) error {
	delete(s.data, threadID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ ports.CheckpointStore = (*MockStore)(nil)
