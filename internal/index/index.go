// # internal/index/index.go
package index

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"retest/internal/parser"
	"retest/internal/resolver"
	"retest/internal/shared/observability"
)

// Directories never worth scanning, whatever the config says.
var denyDirs = map[string]bool{
	".git":         true,
	"target":       true,
	".tox":         true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"node_modules": true,
}

type ModuleInfo struct {
	Module  string
	Path    string
	Imports []string // Dotted import candidates; unresolvable specs are dropped
}

type ProjectIndex struct {
	Root         string
	Modules      map[string]*ModuleInfo
	PathToModule map[string]string
	Warnings     []string
}

// Build scans root and produces the project index. Per-file problems become
// warnings; only walker setup problems are returned as errors. The index is
// rebuilt from scratch on every call.
func Build(root string, excludeDirs, excludeFiles []string) (*ProjectIndex, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}

	dirGlobs, err := compileGlobs(excludeDirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(excludeFiles)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude file pattern: %w", err)
	}

	idx := &ProjectIndex{
		Root:         absRoot,
		Modules:      make(map[string]*ModuleInfo),
		PathToModule: make(map[string]string),
	}

	p := parser.NewPythonParser()

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			idx.Warnings = append(idx.Warnings, fmt.Sprintf("Skipping entry: %v", err))
			return nil
		}

		base := filepath.Base(path)

		if d.IsDir() {
			if path != absRoot && denyDirs[base] {
				return filepath.SkipDir
			}
			for _, g := range dirGlobs {
				if g.Match(base) {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !resolver.IsPythonFile(path) {
			return nil
		}
		for _, g := range fileGlobs {
			if g.Match(base) {
				return nil
			}
		}

		idx.indexFile(p, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	observability.IndexModules.Set(float64(len(idx.Modules)))
	observability.IndexFiles.Set(float64(len(idx.PathToModule)))

	return idx, nil
}

func (x *ProjectIndex) indexFile(p *parser.Parser, path string) {
	start := time.Now()

	content, err := os.ReadFile(path)
	if err != nil {
		x.Warnings = append(x.Warnings, fmt.Sprintf("Failed to read %s: %v", path, err))
		return
	}

	file, err := p.ParseFile(path, content)
	if err != nil {
		x.Warnings = append(x.Warnings, fmt.Sprintf("Failed to parse %s: %v", path, err))
		return
	}

	module := resolver.ModuleName(x.Root, path)
	isPackage := resolver.IsPackageFile(path)

	info := &ModuleInfo{
		Module: module,
		Path:   path,
	}
	for _, spec := range file.Imports {
		if target, ok := resolver.ResolveTarget(module, isPackage, spec); ok {
			info.Imports = append(info.Imports, target)
		}
	}

	// Identity collisions are last-write-wins in traversal order; WalkDir
	// visits lexically, so the outcome is stable on a given tree.
	x.PathToModule[path] = module
	x.Modules[module] = info

	observability.ParseDuration.Observe(time.Since(start).Seconds())
}

// MatchModule maps a dotted candidate onto a known module identity, trying an
// exact hit, then the filesystem layout, then progressively truncating the
// candidate until a known parent module appears.
func (x *ProjectIndex) MatchModule(candidate string) (string, bool) {
	if _, ok := x.Modules[candidate]; ok {
		return candidate, true
	}
	if module, ok := x.matchPath(candidate); ok {
		return module, true
	}
	return x.trimToKnown(candidate)
}

// matchPath converts a.b.c to a/b/c.py or a/b/c/__init__.py under root and
// recovers the canonical identity through the path map.
func (x *ProjectIndex) matchPath(candidate string) (string, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(candidate, ".", "/"))

	file := filepath.Join(x.Root, rel+".py")
	if _, err := os.Stat(file); err == nil {
		if module, ok := x.PathToModule[file]; ok {
			return module, true
		}
	}

	marker := filepath.Join(x.Root, rel, resolver.PackageMarker)
	if _, err := os.Stat(marker); err == nil {
		if module, ok := x.PathToModule[marker]; ok {
			return module, true
		}
	}

	return "", false
}

// trimToKnown handles imports of submodules where only the parent package is
// indexed, e.g. `import pkg.generated.thing` backed by pkg/__init__.py.
func (x *ProjectIndex) trimToKnown(candidate string) (string, bool) {
	parts := strings.Split(candidate, ".")
	for len(parts) > 1 {
		parts = parts[:len(parts)-1]
		parent := strings.Join(parts, ".")
		if _, ok := x.Modules[parent]; ok {
			return parent, true
		}
	}
	return "", false
}

// TopLevels returns the set of leading components across all known modules,
// used to separate project-internal unresolved imports from external ones.
func (x *ProjectIndex) TopLevels() map[string]bool {
	tops := make(map[string]bool, len(x.Modules))
	for name := range x.Modules {
		if head, _, found := strings.Cut(name, "."); found {
			tops[head] = true
		} else {
			tops[name] = true
		}
	}
	return tops
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}
