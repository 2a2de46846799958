// # internal/output/dot.go
package output

import (
	"fmt"
	"sort"
	"strings"

	"retest/internal/graph"
)

type DOTGenerator struct {
	selection *graph.Selection
}

func NewDOTGenerator(sel *graph.Selection) *DOTGenerator {
	return &DOTGenerator{selection: sel}
}

// Generate renders the impacted reverse-dependency subgraph. Seeds are filled
// red, selected tests green, everything else stays plain.
func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph impact {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n\n")

	seeds := make(map[string]bool, len(d.selection.Seeds))
	for _, s := range d.selection.Seeds {
		seeds[s] = true
	}

	modules := make([]string, 0, len(d.selection.Distances))
	for module := range d.selection.Distances {
		modules = append(modules, module)
	}
	sort.Strings(modules)

	for _, module := range modules {
		attrs := fmt.Sprintf("label=\"%s\\nd=%d\"", module, d.selection.Distances[module])
		if seeds[module] {
			attrs += ", style=\"rounded,filled\", fillcolor=\"#F87171\""
		}
		buf.WriteString(fmt.Sprintf("  %q [%s];\n", module, attrs))
	}
	buf.WriteString("\n")

	targets := make([]string, 0, len(d.selection.Edges))
	for target := range d.selection.Edges {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		for _, importer := range d.selection.Edges[target] {
			buf.WriteString(fmt.Sprintf("  %q -> %q;\n", target, importer))
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}
