package capabilities

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/jarvis/pkg/agent"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
)

// MainAgent is the name of the top-level agent graph.
const MainAgent = "jarvis"

// Groups maps capability names to the configuration key that enables them.
// Names missing from the map are their own key.
var Groups = map[string]string{
	"update_core_memory":    "core_memory",
	"get_core_memory_info":  "core_memory",
	"add_memory":            "episodic_memory",
	"search_memory":         "episodic_memory",
	"list_all_memories":     "episodic_memory",
	"delete_memory":         "episodic_memory",
	"update_memory":         "episodic_memory",
	"create_calendar_event": "calendar",
	"list_calendar_events":  "calendar",
	"update_calendar_event": "calendar",
	"delete_calendar_event": "calendar",
}

// GroupKey returns the configuration key enabling capability name.
func GroupKey(name string) string {
	if key, ok := Groups[name]; ok {
		return key
	}
	return name
}

type groupSource struct {
	src ports.EnabledSource
}

func (g groupSource) IsEnabled(name string) bool {
	return g.src.IsEnabled(GroupKey(name))
}

// Grouped adapts a source keyed by configuration key to capability names.
func Grouped(src ports.EnabledSource) ports.EnabledSource {
	if src == nil {
		return nil
	}
	return groupSource{src: src}
}

// Config tunes Assemble.
type Config struct {
	MaxIterations     int
	OracleTimeout     time.Duration
	CapabilityTimeout time.Duration
	// Enabled is keyed by configuration key; nil enables everything.
	Enabled ports.EnabledSource
	Logger  *slog.Logger
}

// Assemble builds the main agent and its registry. Capabilities whose backend
// is missing from svc are not registered.
func Assemble(oracle ports.Oracle, svc Services, cfg Config) (*graph.Graph, *registry.Registry, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	agentOpts := []agent.Option{
		agent.WithMaxIterations(cfg.MaxIterations),
		agent.WithOracleTimeout(cfg.OracleTimeout),
		agent.WithLogger(logger),
	}
	if svc.Profiles != nil || svc.Memories != nil {
		agentOpts = append(agentOpts, agent.WithContextProvider(MemoryContext(svc.Profiles, svc.Memories)))
	}

	caps := []registry.Capability{Think(), TaskComplete()}
	if svc.Profiles != nil {
		caps = append(caps, CoreMemory(svc.Profiles)...)
	}
	if svc.Memories != nil {
		caps = append(caps, EpisodicMemory(svc.Memories)...)
	}
	if svc.Calendar != nil {
		caps = append(caps, CalendarTools(svc)...)
	}
	if svc.Search != nil {
		caps = append(caps, WebSearch(svc.Search))
	}

	type build func(ports.Oracle, Services, ...agent.Option) (agent.SubAgent, error)
	subs := []struct {
		need  bool
		build build
	}{
		{svc.Journal != nil, Nutrition},
		{svc.Journal != nil, Workout},
		{svc.Mailbox != nil, Gmail},
	}
	for _, s := range subs {
		if !s.need {
			continue
		}
		sub, err := s.build(oracle, svc, slices.Clip(agentOpts)...)
		if err != nil {
			return nil, nil, fmt.Errorf("building sub-agent: %w", err)
		}
		caps = append(caps, sub.Capability())
	}

	regOpts := []registry.Option{registry.WithLogger(logger)}
	if cfg.CapabilityTimeout > 0 {
		regOpts = append(regOpts, registry.WithTimeout(cfg.CapabilityTimeout))
	}
	if cfg.Enabled != nil {
		regOpts = append(regOpts, registry.WithEnabledSource(Grouped(cfg.Enabled)))
	}
	reg := registry.New(regOpts...)
	if err := reg.Replace(caps...); err != nil {
		return nil, nil, err
	}

	g, err := agent.New(MainAgent, oracle, reg, agentOpts...)
	if err != nil {
		return nil, nil, err
	}
	return g, reg, nil
}
