// Package diagram renders compiled graphs as Mermaid flowcharts.
package diagram

import (
	"fmt"
	"strings"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
)

// Overlay marks nodes of a thread on the diagram.
type Overlay struct {
	// Current is the node a suspended frame will re-enter.
	Current string
	// Visited are nodes the thread already went through.
	Visited []string
}

// OverlayFor returns the overlay of the frame of checkpoint cp that belongs to g.
func OverlayFor(g *graph.Graph, cp *domain.Checkpoint) *Overlay {
	if cp == nil {
		return nil
	}
	for _, f := range cp.Frames {
		if f.Graph != g.Name() {
			continue
		}
		o := &Overlay{Visited: []string{g.Entry()}}
		if cp.Pending() {
			o.Current = f.Node
		} else {
			o.Visited = append(o.Visited, graph.End)
		}
		return o
	}
	return nil
}

// GenerateMermaid produces a Mermaid flowchart of g.
// The entry node is drawn as a ((circle)), the end marker as a stadium,
// routed edges dotted and static edges solid.
func GenerateMermaid(g *graph.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    %%%% %s\n", g.Name())

	for _, id := range g.Nodes() {
		opener, closer := "[", "]"
		if id == g.Entry() {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(id), opener, id, closer)
	}
	fmt.Fprintf(&sb, "    %s([\"end\"])\n", sanitizeMermaidID(graph.End))

	for _, e := range g.Edges() {
		arrow := "-->"
		if e.Conditional {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Visited {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_")
	return r.Replace(id)
}
