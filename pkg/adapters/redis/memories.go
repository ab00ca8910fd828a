package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/recall"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

var _ ports.MemoryStore = (*Memories)(nil)

// Memories implements ports.MemoryStore with one hash per user mapping memory
// id to its JSON. Search ranks the user's memories on each call, so replicas
// need no shared index.
type Memories struct {
	client *backend.Client
	prefix string
}

// NewMemories creates an episodic memory store on client.
func NewMemories(client *backend.Client, prefix string) *Memories {
	return &Memories{client: client, prefix: prefix}
}

func (s *Memories) key(userID string) string {
	return s.prefix + "memories:" + userID
}

// Add stores text as a new memory.
func (s *Memories) Add(ctx context.Context, userID, text string) (domain.Memory, error) {
	now := time.Now().UTC()
	m := domain.Memory{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(ctx, m); err != nil {
		return domain.Memory{}, err
	}
	return m, nil
}

func (s *Memories) put(ctx context.Context, m domain.Memory) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}
	if err := s.client.HSet(ctx, s.key(m.UserID), m.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// Search ranks the user's memories against query.
func (s *Memories) Search(ctx context.Context, userID, query string, limit int) ([]domain.Memory, error) {
	all, err := s.List(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return recall.Rank(all, query, limit)
}

// List returns the user's memories, newest first.
func (s *Memories) List(ctx context.Context, userID string, limit int) ([]domain.Memory, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read memories: %w", err)
	}
	out := make([]domain.Memory, 0, len(fields))
	for _, raw := range fields {
		var m domain.Memory
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
		}
		out = append(out, m)
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
	return out, nil
}

// Update replaces the text of the memory ref resolves to.
func (s *Memories) Update(ctx context.Context, userID, ref, text string) (domain.Memory, error) {
	m, err := s.resolve(ctx, userID, ref)
	if err != nil {
		return domain.Memory{}, err
	}
	m.Text = strings.TrimSpace(text)
	m.UpdatedAt = time.Now().UTC()
	if err := s.put(ctx, m); err != nil {
		return domain.Memory{}, err
	}
	return m, nil
}

// Delete removes the memory ref resolves to and returns it.
func (s *Memories) Delete(ctx context.Context, userID, ref string) (domain.Memory, error) {
	m, err := s.resolve(ctx, userID, ref)
	if err != nil {
		return domain.Memory{}, err
	}
	if err := s.client.HDel(ctx, s.key(userID), m.ID).Err(); err != nil {
		return domain.Memory{}, fmt.Errorf("failed to delete memory: %w", err)
	}
	return m, nil
}

func (s *Memories) resolve(ctx context.Context, userID, ref string) (domain.Memory, error) {
	all, err := s.List(ctx, userID, 0)
	if err != nil {
		return domain.Memory{}, err
	}
	return domain.ResolveMemory(all, ref)
}
