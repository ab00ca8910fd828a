package capabilities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
)

const (
	searchMemoryLimit = 5
	listMemoryLimit   = 20
)

// EpisodicMemory returns the tools over free-text memories: add_memory,
// search_memory, list_all_memories, delete_memory and update_memory.
func EpisodicMemory(store ports.MemoryStore) []registry.Capability {
	add := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name: "add_memory",
			Description: "Store information, experiences, or facts the user shares about themselves, " +
				"e.g. \"I prefer morning workouts\" or \"I'm allergic to peanuts\".",
			Parameters: schema([]string{"information"}, map[string]any{
				"information": str("The fact to remember."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Information string `mapstructure:"information"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if strings.TrimSpace(in.Information) == "" {
				return domain.Failure("information is required"), nil
			}
			m, err := store.Add(ctx, UserFrom(ctx), in.Information)
			if err != nil {
				return domain.Result{}, err
			}
			return domain.OK("Stored memory: " + m.Text), nil
		},
	}

	search := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "search_memory",
			Description: "Search stored memories to recall facts, preferences, or past experiences.",
			Parameters: schema([]string{"query"}, map[string]any{
				"query": str("What to look for, e.g. \"What are my workout preferences?\"."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Query string `mapstructure:"query"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			found, err := store.Search(ctx, UserFrom(ctx), in.Query, searchMemoryLimit)
			if err != nil {
				return domain.Result{}, err
			}
			if len(found) == 0 {
				return domain.OK("No relevant memories found."), nil
			}
			var b strings.Builder
			b.WriteString("Found memories:")
			for i, m := range found {
				fmt.Fprintf(&b, "\n%d. %s", i+1, m.Text)
			}
			return domain.OK(b.String()), nil
		},
	}

	list := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "list_all_memories",
			Description: "List the user's stored memories, newest first, with the ids delete_memory and update_memory take.",
			Parameters: schema(nil, map[string]any{
				"limit": integer(fmt.Sprintf("Maximum number of memories (default %d).", listMemoryLimit)),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			in := struct {
				Limit int `mapstructure:"limit"`
			}{Limit: listMemoryLimit}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if in.Limit < 1 {
				in.Limit = listMemoryLimit
			}
			all, err := store.List(ctx, UserFrom(ctx), in.Limit)
			if err != nil {
				return domain.Result{}, err
			}
			if len(all) == 0 {
				return domain.OK("No memories stored yet."), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Stored memories (%d total):", len(all))
			for i, m := range all {
				fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, m.ShortID(), m.Text)
			}
			return domain.OK(b.String()), nil
		},
	}

	del := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "delete_memory",
			Description: "Delete a stored memory by id. Use list_all_memories first to find it.",
			Parameters: schema([]string{"memory_id"}, map[string]any{
				"memory_id": str("The memory id or its leading characters."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				MemoryID string `mapstructure:"memory_id"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			m, err := store.Delete(ctx, UserFrom(ctx), strings.TrimSpace(in.MemoryID))
			if err != nil {
				return memoryFailure("deleting", err)
			}
			return domain.OK("Successfully deleted memory: " + m.ID), nil
		},
	}

	update := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "update_memory",
			Description: "Replace the content of a stored memory. Use list_all_memories first to find its id.",
			Parameters: schema([]string{"memory_id", "new_content"}, map[string]any{
				"memory_id":   str("The memory id or its leading characters."),
				"new_content": str("The new content for the memory."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				MemoryID   string `mapstructure:"memory_id"`
				NewContent string `mapstructure:"new_content"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			if strings.TrimSpace(in.NewContent) == "" {
				return domain.Failure("new_content is required"), nil
			}
			m, err := store.Update(ctx, UserFrom(ctx), strings.TrimSpace(in.MemoryID), in.NewContent)
			if err != nil {
				return memoryFailure("updating", err)
			}
			return domain.OK(fmt.Sprintf("Successfully updated memory %s to: %s", m.ID, m.Text)), nil
		},
	}

	return []registry.Capability{add, search, list, del, update}
}

// memoryFailure reports a bad reference to the model and passes store
// failures up to the registry.
func memoryFailure(verb string, err error) (domain.Result, error) {
	if errors.Is(err, domain.ErrMemoryNotFound) || errors.Is(err, domain.ErrAmbiguousMemory) {
		return domain.Failure(fmt.Sprintf("Error %s memory: %v", verb, err)), nil
	}
	return domain.Result{}, err
}
