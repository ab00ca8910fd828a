package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/jarvis/pkg/ports"
)

// ListThreads writes one line per stored thread.
func ListThreads(ctx context.Context, w io.Writer, store ports.CheckpointStore) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No threads found.")
		return nil
	}
	fmt.Fprintln(w, "Threads:")
	for _, id := range ids {
		cp, err := store.Load(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "- %s (unreadable: %v)\n", id, err)
			continue
		}
		fmt.Fprintf(w, "- %s [%s v%d, updated %s]\n", id, cp.Status, cp.Version, cp.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// InspectThread writes the thread's checkpoint as indented JSON.
func InspectThread(ctx context.Context, w io.Writer, store ports.CheckpointStore, id string) error {
	cp, err := store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("loading thread '%s': %w", id, err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
