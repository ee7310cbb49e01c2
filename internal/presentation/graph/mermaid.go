package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ports"
)

// Overlay marks the handlers that signed a plan.
type Overlay struct {
	Signed    []string
	Finalizer string
}

// OverlayFromSigns builds an overlay from an audit trail. The last signer is
// the finalizer when final is set.
func OverlayFromSigns(signs []domain.Sign, final bool) *Overlay {
	o := &Overlay{}
	for _, s := range signs {
		o.Signed = append(o.Signed, s.Handler)
	}
	if final && len(signs) > 0 {
		o.Finalizer = signs[len(signs)-1].Handler
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the dependencies between
// handlers. Edges point from a dependency to its dependent.
// - Root (no dependencies): ((Circle))
// - Dependent: [Rectangle]
// - Unregistered dependency: dotted edge to a {{Hexagon}}
func GenerateMermaid(handlers []ports.Handler, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	known := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		known[ports.HandlerName(h)] = true
	}

	missing := make(map[string]bool)
	for _, h := range handlers {
		name := ports.HandlerName(h)
		safeID := sanitizeMermaidID(name)
		deps := ports.DependenciesOf(h)

		opener, closer := "[", "]"
		if len(deps) == 0 {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, name, closer)

		for _, dep := range deps {
			arrow := "-->"
			if !known[dep] {
				arrow = "-.->"
				if !missing[dep] {
					missing[dep] = true
					fmt.Fprintf(&sb, "    %s{{\"%s\"}}\n", sanitizeMermaidID(dep), dep)
				}
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(dep), arrow, safeID)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef signed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef final fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.Signed {
			safeID := sanitizeMermaidID(name)
			if safeID == "" || seen[safeID] || name == overlay.Finalizer {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s signed;\n", safeID)
		}
		if overlay.Finalizer != "" {
			fmt.Fprintf(&sb, "    class %s final;\n", sanitizeMermaidID(overlay.Finalizer))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_", "*", "")
	return r.Replace(id)
}
