// Package file persists threads and core memory as JSON files, for single-node
// and CLI use.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

var _ ports.CheckpointStore = (*Store)(nil)

// Store implements ports.CheckpointStore with one JSON file per thread.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".jarvis/threads".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".jarvis", "threads")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(threadID string) string {
	return filepath.Join(s.BasePath, threadID+".json")
}

// Save persists the checkpoint atomically.
func (s *Store) Save(ctx context.Context, threadID string, cp *domain.Checkpoint) error {
	if err := validID(threadID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return writeAtomic(s.path(threadID), data)
}

// Load retrieves the checkpoint.
func (s *Store) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	if err := validID(threadID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(threadID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to read thread file: %w", err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Delete removes the thread file. Deleting an unknown thread is not an error.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	if err := validID(threadID); err != nil {
		return err
	}
	err := os.Remove(s.path(threadID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete thread file: %w", err)
	}
	return nil
}

// List returns the stored thread ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	threads := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		threads = append(threads, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(threads)
	return threads, nil
}
