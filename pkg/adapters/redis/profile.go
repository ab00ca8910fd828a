package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

var _ ports.ProfileStore = (*Profiles)(nil)

// Profiles implements ports.ProfileStore with one hash per user whose fields
// are "category/key".
type Profiles struct {
	client *backend.Client
	prefix string
}

// NewProfiles creates a profile store on client.
func NewProfiles(client *backend.Client, prefix string) *Profiles {
	return &Profiles{client: client, prefix: prefix}
}

func (p *Profiles) key(userID string) string {
	return p.prefix + "profile:" + userID
}

// Get returns the user's profile; an unknown user has an empty one.
func (p *Profiles) Get(ctx context.Context, userID string) (domain.Profile, error) {
	fields, err := p.client.HGetAll(ctx, p.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	profile := domain.Profile{}
	for field, value := range fields {
		category, key, ok := strings.Cut(field, "/")
		if !ok {
			continue
		}
		profile.Set(category, key, value)
	}
	return profile, nil
}

// Put sets one fact.
func (p *Profiles) Put(ctx context.Context, userID, category, key, value string) error {
	if err := p.client.HSet(ctx, p.key(userID), category+"/"+key, value).Err(); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
