package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

var _ ports.JournalStore = (*Journal)(nil)

// Journal implements ports.JournalStore with one sorted set per user and kind,
// scored by the entry's log time in milliseconds.
type Journal struct {
	client *backend.Client
	prefix string
}

// NewJournal creates a journal on client.
func NewJournal(client *backend.Client, prefix string) *Journal {
	return &Journal{client: client, prefix: prefix}
}

func (j *Journal) key(kind domain.JournalKind, userID string) string {
	return j.prefix + "journal:" + string(kind) + ":" + userID
}

// Append stores the entry, assigning an id when it has none.
func (j *Journal) Append(ctx context.Context, entry domain.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	err = j.client.ZAdd(ctx, j.key(entry.Kind, entry.UserID), backend.Z{
		Score:  float64(entry.LoggedAt.UnixMilli()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// Since returns the user's entries of kind logged at or after since, oldest first.
func (j *Journal) Since(ctx context.Context, kind domain.JournalKind, userID string, since time.Time) ([]domain.JournalEntry, error) {
	members, err := j.client.ZRangeByScore(ctx, j.key(kind, userID), &backend.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	out := make([]domain.JournalEntry, 0, len(members))
	for _, m := range members {
		var e domain.JournalEntry
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal journal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
