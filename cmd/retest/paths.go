// # cmd/retest/paths.go
package main

import (
	"os"
	"path/filepath"
	"strings"

	"retest/internal/resolver"
)

// absolutizeChanged turns raw --changed entries into absolute paths. Tilde
// expands to the user's home dir, relative paths anchor at cwd. Symlinks are
// resolved when the file exists; deleted files keep the plain absolute path.
func absolutizeChanged(inputs []string, cwd string) []string {
	paths := make([]string, 0, len(inputs))
	for _, raw := range inputs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		expanded := expandTilde(raw)
		path := expanded
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		if real, err := filepath.EvalSymlinks(path); err == nil {
			paths = append(paths, real)
		} else {
			paths = append(paths, filepath.Clean(path))
		}
	}
	return paths
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// filterPythonFiles keeps only Python sources; changed configs, shell scripts
// and the like should never trigger any tests.
func filterPythonFiles(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	for _, p := range inputs {
		if resolver.IsPythonFile(p) {
			out = append(out, p)
		}
	}
	return out
}

// chooseRoot resolves the project root for scanning:
//  1. explicit --root wins
//  2. nearest ancestor of a changed file containing pyproject.toml or .git,
//     preferring the shortest ascent
//  3. common ancestor of the changed files' parent dirs
//  4. cwd
func chooseRoot(explicit string, changed []string, cwd string) string {
	if explicit != "" {
		return pickDir(explicit)
	}

	bestDepth := -1
	best := ""
	for _, path := range changed {
		depth := 0
		current := pickDir(path)
		for {
			if hasRootMarker(current) {
				if bestDepth == -1 || depth < bestDepth {
					bestDepth = depth
					best = current
				}
				break
			}
			parent := filepath.Dir(current)
			if parent == current {
				break
			}
			current = parent
			depth++
		}
	}

	root := best
	if root == "" {
		root = commonAncestorDirs(changed)
	}
	if root == "" {
		root = cwd
	}

	// Never scan the filesystem root.
	if filepath.Dir(root) == root {
		return cwd
	}
	return root
}

func pickDir(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Clean(path)
	}
	return filepath.Dir(path)
}

func hasRootMarker(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "pyproject.toml")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	return false
}

// commonAncestorDirs returns the deepest directory containing the parents of
// all given paths, or "" when they share no prefix.
func commonAncestorDirs(paths []string) string {
	if len(paths) == 0 {
		return ""
	}

	parents := make([][]string, 0, len(paths))
	for _, p := range paths {
		parents = append(parents, splitPath(filepath.Dir(p)))
	}

	first := parents[0]
	prefixLen := len(first)
	for _, comps := range parents[1:] {
		if len(comps) < prefixLen {
			prefixLen = len(comps)
		}
		for i := 0; i < prefixLen; i++ {
			if first[i] != comps[i] {
				prefixLen = i
				break
			}
		}
	}

	if prefixLen == 0 {
		return ""
	}
	return filepath.Join(first[:prefixLen]...)
}

func splitPath(path string) []string {
	clean := filepath.Clean(path)
	parts := strings.Split(clean, string(filepath.Separator))
	if len(parts) > 0 && parts[0] == "" {
		// Absolute path on unix: keep the root as its own component.
		parts[0] = string(filepath.Separator)
	}
	return parts
}
