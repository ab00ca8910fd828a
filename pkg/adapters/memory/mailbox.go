package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/google/uuid"
)

var _ ports.Mailbox = (*Mailbox)(nil)

// ErrMessageNotFound is returned for unknown message or draft ids.
var ErrMessageNotFound = errors.New("message not found")

// Mailbox implements ports.Mailbox in memory. Sent messages are kept in Outbox.
type Mailbox struct {
	mu       sync.RWMutex
	owner    string
	messages map[string]domain.Email
	sent     []domain.Email
}

// NewMailbox creates a mailbox for owner holding the given received messages.
func NewMailbox(owner string, inbox ...domain.Email) *Mailbox {
	m := &Mailbox{owner: owner, messages: make(map[string]domain.Email)}
	for _, e := range inbox {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		m.messages[e.ID] = e
	}
	return m
}

// Search matches query, case-insensitively, against sender, recipient, subject
// and body of received messages, newest first. An empty query matches all.
func (m *Mailbox) Search(ctx context.Context, query string, limit int) ([]domain.Email, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Email
	for _, e := range m.messages {
		if e.Draft {
			continue
		}
		hay := strings.ToLower(strings.Join([]string{e.From, e.To, e.Subject, e.Body}, "\n"))
		if q == "" || strings.Contains(hay, q) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Timestamp.After(out[b].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a message or draft by id.
func (m *Mailbox) Get(ctx context.Context, id string) (domain.Email, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.messages[id]
	if !ok {
		return domain.Email{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	return e, nil
}

// SaveDraft stores a draft under a new id.
func (m *Mailbox) SaveDraft(ctx context.Context, draft domain.Email) (domain.Email, error) {
	draft.ID = uuid.NewString()
	draft.Draft = true
	draft.From = m.owner
	draft.Timestamp = time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[draft.ID] = draft
	return draft, nil
}

// Send moves a draft to the outbox.
func (m *Mailbox) Send(ctx context.Context, draftID string) (domain.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.messages[draftID]
	if !ok || !draft.Draft {
		return domain.Email{}, fmt.Errorf("%w: draft %s", ErrMessageNotFound, draftID)
	}
	delete(m.messages, draftID)
	draft.Draft = false
	draft.Timestamp = time.Now()
	m.sent = append(m.sent, draft)
	return draft, nil
}

// Outbox returns the messages sent so far.
func (m *Mailbox) Outbox() []domain.Email {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Email(nil), m.sent...)
}
