package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

var _ ports.JournalStore = (*Journal)(nil)

// Journal implements ports.JournalStore in memory.
type Journal struct {
	mu      sync.RWMutex
	entries []domain.JournalEntry
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append stores the entry.
func (j *Journal) Append(ctx context.Context, entry domain.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, cloneEntry(entry))
	return nil
}

// Since returns the user's entries of kind logged at or after since, oldest first.
func (j *Journal) Since(ctx context.Context, kind domain.JournalKind, userID string, since time.Time) ([]domain.JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []domain.JournalEntry
	for _, e := range j.entries {
		if e.Kind == kind && e.UserID == userID && !e.LoggedAt.Before(since) {
			out = append(out, cloneEntry(e))
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].LoggedAt.Before(out[b].LoggedAt) })
	return out, nil
}

func cloneEntry(e domain.JournalEntry) domain.JournalEntry {
	if e.Metrics != nil {
		m := make(map[string]float64, len(e.Metrics))
		for k, v := range e.Metrics {
			m[k] = v
		}
		e.Metrics = m
	}
	return e
}
