package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/recall"
	"github.com/google/uuid"
)

var _ ports.MemoryStore = (*Memories)(nil)

// Memories implements ports.MemoryStore in memory, kept searchable by a
// recall index updated on every write.
type Memories struct {
	mu    sync.RWMutex
	data  map[string]domain.Memory
	index *recall.Index
	now   func() time.Time
}

// NewMemories creates an empty episodic memory store.
func NewMemories() (*Memories, error) {
	index, err := recall.New()
	if err != nil {
		return nil, err
	}
	return &Memories{
		data:  make(map[string]domain.Memory),
		index: index,
		now:   time.Now,
	}, nil
}

// Add stores text as a new memory.
func (s *Memories) Add(ctx context.Context, userID, text string) (domain.Memory, error) {
	now := s.now().UTC()
	m := domain.Memory{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Put(m); err != nil {
		return domain.Memory{}, err
	}
	s.data[m.ID] = m
	return m, nil
}

// Search returns the user's memories ranked by the index.
func (s *Memories) Search(ctx context.Context, userID, query string, limit int) ([]domain.Memory, error) {
	ids, err := s.index.Search(userID, query, limit)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.data[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// List returns the user's memories, newest first.
func (s *Memories) List(ctx context.Context, userID string, limit int) ([]domain.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(userID, limit), nil
}

func (s *Memories) list(userID string, limit int) []domain.Memory {
	var out []domain.Memory
	for _, m := range s.data {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Update replaces the text of the memory ref resolves to.
func (s *Memories) Update(ctx context.Context, userID, ref, text string) (domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := domain.ResolveMemory(s.list(userID, 0), ref)
	if err != nil {
		return domain.Memory{}, err
	}
	m.Text = strings.TrimSpace(text)
	m.UpdatedAt = s.now().UTC()
	if err := s.index.Put(m); err != nil {
		return domain.Memory{}, err
	}
	s.data[m.ID] = m
	return m, nil
}

// Delete removes the memory ref resolves to and returns it.
func (s *Memories) Delete(ctx context.Context, userID, ref string) (domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := domain.ResolveMemory(s.list(userID, 0), ref)
	if err != nil {
		return domain.Memory{}, err
	}
	if err := s.index.Remove(m.ID); err != nil {
		return domain.Memory{}, err
	}
	delete(s.data, m.ID)
	return m, nil
}
