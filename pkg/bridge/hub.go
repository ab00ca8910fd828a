package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/jarvis/pkg/domain"
)

// Hub is the registry of live sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     []Option
	logger   *slog.Logger
}

// NewHub creates an empty hub. Options also apply to the sessions it opens.
func NewHub(opts ...Option) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		opts:     opts,
		logger:   newConfig(opts).logger,
	}
}

// Open starts a session for id, stopping any session it replaces.
func (h *Hub) Open(ctx context.Context, id string, t Transport) *Session {
	s := NewSession(id, t, h.opts...)
	s.Start(ctx)

	h.mu.Lock()
	old := h.sessions[id]
	h.sessions[id] = s
	h.mu.Unlock()

	if old != nil {
		h.logger.InfoContext(ctx, "Replacing live session", "session_id", id)
		old.Stop()
	}
	return s
}

// Close stops s and removes it, unless it was already replaced.
func (h *Hub) Close(s *Session) {
	h.mu.Lock()
	if h.sessions[s.id] == s {
		delete(h.sessions, s.id)
	}
	h.mu.Unlock()
	s.Stop()
}

// Get returns the live session for id.
func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Broadcast queues ev on every live session and returns how many received it.
func (h *Hub) Broadcast(ctx context.Context, ev domain.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		s.Emit(ctx, ev)
	}
	return len(h.sessions)
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown stops every session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, s := range sessions {
		s.Stop()
	}
}
