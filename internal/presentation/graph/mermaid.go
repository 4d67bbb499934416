package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/model"
)

// Overlay carries run-time state to paint on top of the static graph.
type Overlay struct {
	Finished []string // block names
	Failed   []string
}

// GenerateMermaid produces a Mermaid flowchart of a frozen definition.
// Block shapes follow their role:
// - Source (no inputs): ((Circle))
// - Sink (no outputs): [/Parallelogram/]
// - Transform: [[Subroutine]]
// Connections are labelled with their port IDs and message kind. Exported ports are
// drawn as boundary nodes joined to their block with dotted arrows.
func GenerateMermaid(def *model.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	blocks := def.Blocks()
	for i, b := range blocks {
		opener, closer := "[[", "]]"
		switch {
		case len(b.Inputs()) == 0 && len(b.Outputs()) > 0:
			opener, closer = "((", "))"
		case len(b.Outputs()) == 0 && len(b.Inputs()) > 0:
			opener, closer = "[/", "/]"
		case len(b.Inputs()) == 0:
			opener, closer = "[", "]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", blockID(i), opener, escapeLabel(b.Name()), closer)
	}

	node := func(id domain.PortID) string {
		if h, ok := def.Owner(id); ok {
			return blockID(int(h))
		}
		return portID(id)
	}

	for _, c := range def.Connections() {
		from, to := node(c.Output.PortID()), node(c.Input.PortID())
		label := fmt.Sprintf("%d → %d", c.Output, c.Input)
		if c.Kind != nil {
			label += " : " + c.Kind.Name()
		}
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", ensure(&sb, def, from, c.Output.PortID()), escapeLabel(label), ensure(&sb, def, to, c.Input.PortID()))
	}

	for _, id := range def.ExportedInputs() {
		ext := "in" + sanitizeMermaidID(id.String())
		fmt.Fprintf(&sb, "    %s>\"in %d\"]\n", ext, id)
		fmt.Fprintf(&sb, "    %s -.-> %s\n", ext, ensure(&sb, def, node(id.PortID()), id.PortID()))
	}
	for _, id := range def.ExportedOutputs() {
		ext := "out" + sanitizeMermaidID(id.String())
		fmt.Fprintf(&sb, "    %s>\"out %d\"]\n", ext, id)
		fmt.Fprintf(&sb, "    %s -.-> %s\n", ensure(&sb, def, node(id.PortID()), id.PortID()), ext)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef finished fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")
		paint(&sb, blocks, overlay.Finished, "finished")
		paint(&sb, blocks, overlay.Failed, "failed")
	}

	return sb.String()
}

// ensure declares a node for a standalone port the first time it is referenced.
func ensure(sb *strings.Builder, def *model.Definition, node string, id domain.PortID) string {
	if _, owned := def.Owner(id); owned {
		return node
	}
	decl := fmt.Sprintf("    %s((\"%d\"))\n", node, id)
	if !strings.Contains(sb.String(), decl) {
		sb.WriteString(decl)
	}
	return node
}

func paint(sb *strings.Builder, blocks []domain.BlockDefinition, names []string, class string) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for i, b := range blocks {
		if want[b.Name()] {
			fmt.Fprintf(sb, "    class %s %s;\n", blockID(i), class)
		}
	}
}

func blockID(i int) string { return fmt.Sprintf("b%d", i) }

func portID(id domain.PortID) string {
	return "p" + sanitizeMermaidID(id.String())
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "m")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
