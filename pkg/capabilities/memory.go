package capabilities

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/jarvis/pkg/agent"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
)

// Categories are the core memory sections, in display order.
var Categories = []string{"identity", "work", "preferences", "health", "relationships", "context"}

// CoreMemory returns update_core_memory and get_core_memory_info.
func CoreMemory(store ports.ProfileStore) []registry.Capability {
	update := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name: "update_core_memory",
			Description: "Update core memory: fundamental facts about the user that are always available. " +
				"Categories: " + strings.Join(Categories, ", ") + ".",
			Parameters: schema([]string{"category", "key", "value"}, map[string]any{
				"category": map[string]any{"type": "string", "enum": Categories},
				"key":      str("Fact name, e.g. name, company, allergies."),
				"value":    str("Fact value."),
			}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Category string `mapstructure:"category"`
				Key      string `mapstructure:"key"`
				Value    string `mapstructure:"value"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			in.Category = strings.ToLower(strings.TrimSpace(in.Category))
			if !slices.Contains(Categories, in.Category) {
				return domain.Failure(fmt.Sprintf("unknown category %q, use one of: %s", in.Category, strings.Join(Categories, ", "))), nil
			}
			if strings.TrimSpace(in.Key) == "" {
				return domain.Failure("key is required"), nil
			}
			if err := store.Put(ctx, UserFrom(ctx), in.Category, in.Key, in.Value); err != nil {
				return domain.Result{}, err
			}
			return domain.OK(fmt.Sprintf("Updated core memory: %s.%s = %s", in.Category, in.Key, in.Value)), nil
		},
	}

	info := registry.Capability{
		Descriptor: domain.CapabilityDescriptor{
			Name:        "get_core_memory_info",
			Description: "Retrieve core memory. Returns one category when given, otherwise everything.",
			Parameters:  schema(nil, map[string]any{"category": str("Optional category.")}),
		},
		Invoke: func(ctx context.Context, args map[string]any) (domain.Result, error) {
			var in struct {
				Category string `mapstructure:"category"`
			}
			if err := registry.DecodeArgs(args, &in); err != nil {
				return domain.Result{}, err
			}
			profile, err := store.Get(ctx, UserFrom(ctx))
			if err != nil {
				return domain.Result{}, err
			}
			category := strings.ToLower(strings.TrimSpace(in.Category))
			if category == "" {
				if text := FormatProfile(profile); text != "" {
					return domain.OK(text), nil
				}
				return domain.OK("Core memory is empty."), nil
			}
			facts := profile[category]
			if len(facts) == 0 {
				return domain.OK("No core memory found for category: " + category), nil
			}
			return domain.OK(formatCategory(category, facts)), nil
		},
	}
	return []registry.Capability{update, info}
}

// RecallLimit bounds the memories recalled into each decision.
const RecallLimit = 5

// MemoryContext returns the provider that injects the user's core memory and
// the episodic memories relevant to the latest user message into every
// decision. Either store may be nil. Lookup failures leave their part out.
func MemoryContext(profiles ports.ProfileStore, memories ports.MemoryStore) agent.ContextProvider {
	return func(ctx context.Context, s domain.ExecutionState) string {
		user := UserFrom(ctx)
		var parts []string
		if profiles != nil {
			if profile, err := profiles.Get(ctx, user); err == nil {
				if text := FormatProfile(profile); text != "" {
					parts = append(parts, text)
				}
			}
		}
		if memories != nil {
			if found, err := memories.Search(ctx, user, s.LastUserText(), RecallLimit); err == nil && len(found) > 0 {
				parts = append(parts, formatRecalled(found))
			}
		}
		return strings.Join(parts, "\n\n")
	}
}

func formatRecalled(memories []domain.Memory) string {
	var b strings.Builder
	b.WriteString("=== RELEVANT MEMORIES ===")
	for _, m := range memories {
		b.WriteString("\n- " + m.Text)
	}
	return b.String()
}

// FormatProfile renders the non-empty categories of a profile, known
// categories first. An empty profile renders as "".
func FormatProfile(p domain.Profile) string {
	var names []string
	for _, c := range Categories {
		if len(p[c]) > 0 {
			names = append(names, c)
		}
	}
	var extra []string
	for c, facts := range p {
		if len(facts) > 0 && !slices.Contains(Categories, c) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)
	if len(names) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== CORE MEMORY ===")
	for _, c := range names {
		b.WriteString("\n\n")
		b.WriteString(formatCategory(c, p[c]))
	}
	return b.String()
}

func formatCategory(category string, facts map[string]string) string {
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(strings.ToUpper(category) + ":")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  - %s: %s", k, facts[k])
	}
	return b.String()
}
