package ports

import (
	"context"
	"io"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
)

// ProfileStore persists the core memory of each user.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
	Put(ctx context.Context, userID, category, key, value string) error
}

// JournalStore persists the nutrition and workout logs.
type JournalStore interface {
	Append(ctx context.Context, entry domain.JournalEntry) error
	// Since returns the user's entries of kind logged at or after since, oldest first.
	Since(ctx context.Context, kind domain.JournalKind, userID string, since time.Time) ([]domain.JournalEntry, error)
}

// Calendar is the boundary to a calendar service.
type Calendar interface {
	Create(ctx context.Context, ev domain.CalendarEvent) (domain.CalendarEvent, error)
	List(ctx context.Context, from, to time.Time) ([]domain.CalendarEvent, error)
	Update(ctx context.Context, ev domain.CalendarEvent) (domain.CalendarEvent, error)
	Delete(ctx context.Context, id string) error
}

// Mailbox is the boundary to an email service.
type Mailbox interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Email, error)
	Get(ctx context.Context, id string) (domain.Email, error)
	SaveDraft(ctx context.Context, draft domain.Email) (domain.Email, error)
	Send(ctx context.Context, draftID string) (domain.Email, error)
}

// MemoryStore persists the episodic memory of each user. Update and Delete
// take the full id or a unique prefix of it.
type MemoryStore interface {
	Add(ctx context.Context, userID, text string) (domain.Memory, error)
	// Search returns at most limit memories relevant to query, best first.
	Search(ctx context.Context, userID, query string, limit int) ([]domain.Memory, error)
	// List returns at most limit memories, newest first. A limit below 1 lists all.
	List(ctx context.Context, userID string, limit int) ([]domain.Memory, error)
	Update(ctx context.Context, userID, ref, text string) (domain.Memory, error)
	Delete(ctx context.Context, userID, ref string) (domain.Memory, error)
}

// Searcher is the boundary to a web search service.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// Speaker synthesizes speech. The caller closes the returned audio.
type Speaker interface {
	Speak(ctx context.Context, text string) (audio io.ReadCloser, contentType string, err error)
}
