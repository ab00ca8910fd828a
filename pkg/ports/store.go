package ports

import (
	"context"

	"github.com/aretw0/jarvis/pkg/domain"
)

// CheckpointStore defines the interface for persisting thread checkpoints.
// This allows a suspended run to resume on another task or after a restart.
type CheckpointStore interface {
	// Save persists the checkpoint for a given thread ID.
	Save(ctx context.Context, threadID string, cp *domain.Checkpoint) error

	// Load retrieves the checkpoint for a given thread ID.
	// Returns domain.ErrCheckpointNotFound if the thread has none.
	Load(ctx context.Context, threadID string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint for a given thread ID.
	Delete(ctx context.Context, threadID string) error

	// List returns the thread IDs that currently have a checkpoint.
	List(ctx context.Context) ([]string, error)
}
