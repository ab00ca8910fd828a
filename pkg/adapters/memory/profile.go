package memory

import (
	"context"
	"sync"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

var _ ports.ProfileStore = (*Profiles)(nil)

// Profiles implements ports.ProfileStore in memory.
type Profiles struct {
	mu   sync.RWMutex
	data map[string]domain.Profile
}

// NewProfiles creates an empty profile store.
func NewProfiles() *Profiles {
	return &Profiles{data: make(map[string]domain.Profile)}
}

// Get returns a copy of the user's profile. Unknown users have an empty profile.
func (p *Profiles) Get(ctx context.Context, userID string) (domain.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data[userID].Clone(), nil
}

// Put sets one fact.
func (p *Profiles) Put(ctx context.Context, userID, category, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.data[userID]
	if !ok {
		profile = domain.Profile{}
		p.data[userID] = profile
	}
	profile.Set(category, key, value)
	return nil
}
