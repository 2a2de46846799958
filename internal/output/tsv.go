// # internal/output/tsv.go
package output

import (
	"fmt"
	"strings"

	"retest/internal/graph"
)

type TSVGenerator struct {
	selection *graph.Selection
}

func NewTSVGenerator(sel *graph.Selection) *TSVGenerator {
	return &TSVGenerator{selection: sel}
}

func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Path\tDistance\tFilenameMatch\n")

	for _, res := range t.selection.Results {
		buf.WriteString(fmt.Sprintf("%s\t%d\t%d\n",
			res.Path, res.Distance, res.Priority.FilenameMatch))
	}

	return buf.String(), nil
}
