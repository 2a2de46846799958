// # internal/graph/impact.go
package graph

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"retest/internal/index"
	"retest/internal/priority"
	"retest/internal/resolver"
	"retest/internal/shared/observability"
)

type TestResult struct {
	Path     string
	Priority priority.Priority
	Distance int
}

type Options struct {
	Max           int // 0 = no cap
	DistanceLimit int // -1 = unbounded; the limit gates expansion, not inclusion
	Quiet         bool
	WarnAsError   bool
	Diagnostics   io.Writer // defaults to stderr
}

// Selection is the full outcome of one impact analysis run.
type Selection struct {
	Root      string
	Changed   []string
	Seeds     []string
	Results   []TestResult
	Warnings  []string
	Distances map[string]int
	// Edges holds the reverse-dependency edges among impacted modules,
	// target -> importers, for report generation.
	Edges    map[string][]string
	Duration time.Duration
}

// Select computes the impacted tests for a set of changed file paths.
//
// The reverse graph is rebuilt from the index on every call so that the
// warning set reflects exactly the imports reachable in this pass. The BFS
// assigns each module its first distance and never revisits, so distances are
// shortest-path hop counts from the nearest seed.
func Select(idx *index.ProjectIndex, changed []string, opts Options) (*Selection, error) {
	start := time.Now()

	diag := opts.Diagnostics
	if diag == nil {
		diag = os.Stderr
	}

	warnings := append([]string(nil), idx.Warnings...)
	topLevels := idx.TopLevels()

	// Step 1: reverse adjacency, target -> set of importing modules.
	// Module keys are visited in sorted order so warnings come out stable.
	reverse := make(map[string]map[string]bool)
	names := make([]string, 0, len(idx.Modules))
	for name := range idx.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := idx.Modules[name]
		for _, imp := range info.Imports {
			target, ok := idx.MatchModule(imp)
			if !ok {
				// Only complain about imports that look project-internal;
				// third-party imports are expected to miss.
				if head, _, _ := strings.Cut(imp, "."); topLevels[head] {
					warnings = append(warnings, fmt.Sprintf("Unresolved import `%s` in module `%s`", imp, info.Module))
				}
				continue
			}
			if reverse[target] == nil {
				reverse[target] = make(map[string]bool)
			}
			reverse[target][info.Module] = true
		}
	}

	// Step 2: seed selection.
	distances := make(map[string]int)
	var queue []string
	var seeds []string

	seed := func(module string) {
		if _, seen := distances[module]; seen {
			return
		}
		distances[module] = 0
		queue = append(queue, module)
		seeds = append(seeds, module)
	}

	for _, path := range changed {
		if module, ok := idx.PathToModule[path]; ok {
			seed(module)
			continue
		}

		// Deleted or never-indexed files still seed the graph: guess the
		// identity from the path and map it onto the index if possible.
		if !resolver.IsPythonFile(path) {
			continue
		}
		guessed := resolver.ModuleName(idx.Root, path)
		target, ok := idx.MatchModule(guessed)
		if !ok {
			target = guessed // no edges, hence no further impact
		}
		seed(target)
		warnings = append(warnings, fmt.Sprintf("Changed file not indexed (using module `%s`): %s", guessed, path))
	}

	if !opts.Quiet {
		for _, w := range warnings {
			fmt.Fprintf(diag, "Warning: %s\n", w)
		}
	}

	// Step 3: bounded BFS over the reverse graph.
	for len(queue) > 0 {
		module := queue[0]
		queue = queue[1:]
		dist := distances[module]

		if opts.DistanceLimit >= 0 && dist >= opts.DistanceLimit {
			continue // still impacted, but contributes no further reach
		}

		importers := make([]string, 0, len(reverse[module]))
		for imp := range reverse[module] {
			importers = append(importers, imp)
		}
		sort.Strings(importers)

		for _, imp := range importers {
			if _, seen := distances[imp]; seen {
				continue
			}
			distances[imp] = dist + 1
			queue = append(queue, imp)
		}
	}

	// Step 4/5: keep test files, rank, truncate.
	changedLeaves := make(map[string]bool, len(distances))
	for module := range distances {
		parts := strings.Split(module, ".")
		changedLeaves[parts[len(parts)-1]] = true
	}

	var results []TestResult
	for module, dist := range distances {
		info, ok := idx.Modules[module]
		if !ok || !resolver.IsTestFile(info.Path) {
			continue
		}

		outPath := info.Path
		if rel, err := filepath.Rel(idx.Root, info.Path); err == nil && !strings.HasPrefix(rel, "..") {
			outPath = rel
		}

		results = append(results, TestResult{
			Path:     outPath,
			Priority: priority.Compute(outPath, dist, changedLeaves),
			Distance: dist,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Priority != results[j].Priority {
			return results[i].Priority.Less(results[j].Priority)
		}
		return results[i].Path < results[j].Path
	})
	if opts.Max > 0 && len(results) > opts.Max {
		results = results[:opts.Max]
	}

	sel := &Selection{
		Root:      idx.Root,
		Changed:   append([]string(nil), changed...),
		Seeds:     seeds,
		Results:   results,
		Warnings:  warnings,
		Distances: distances,
		Edges:     impactedEdges(reverse, distances),
		Duration:  time.Since(start),
	}

	observability.SelectionDuration.Observe(sel.Duration.Seconds())
	observability.ImpactedTests.Observe(float64(len(results)))
	observability.SelectionWarnings.Add(float64(len(warnings)))

	// Step 6: escalation happens only after the full computation.
	if opts.WarnAsError && len(warnings) > 0 {
		return sel, fmt.Errorf("warnings treated as errors (%d warnings); first: %s", len(warnings), warnings[0])
	}

	return sel, nil
}

// impactedEdges keeps only reverse edges between impacted modules, with
// importer lists sorted for stable report output.
func impactedEdges(reverse map[string]map[string]bool, distances map[string]int) map[string][]string {
	edges := make(map[string][]string)
	for target, importers := range reverse {
		if _, ok := distances[target]; !ok {
			continue
		}
		var kept []string
		for imp := range importers {
			if _, ok := distances[imp]; ok {
				kept = append(kept, imp)
			}
		}
		if len(kept) > 0 {
			sort.Strings(kept)
			edges[target] = kept
		}
	}
	return edges
}
