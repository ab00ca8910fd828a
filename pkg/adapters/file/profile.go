package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

var _ ports.ProfileStore = (*Profiles)(nil)

// Profiles implements ports.ProfileStore with one JSON file per user.
type Profiles struct {
	mu       sync.Mutex
	basePath string
}

// NewProfiles stores profiles under basePath.
func NewProfiles(basePath string) *Profiles {
	return &Profiles{basePath: basePath}
}

func (p *Profiles) path(userID string) string {
	return filepath.Join(p.basePath, userID+".json")
}

// Get returns the user's profile; an unknown user has an empty one.
func (p *Profiles) Get(ctx context.Context, userID string) (domain.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read(userID)
}

// Put sets one fact.
func (p *Profiles) Put(ctx context.Context, userID, category, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile, err := p.read(userID)
	if err != nil {
		return err
	}
	profile.Set(category, key, value)

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return writeAtomic(p.path(userID), data)
}

func (p *Profiles) read(userID string) (domain.Profile, error) {
	if err := validID(userID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	profile := domain.Profile{}
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return profile, nil
}
