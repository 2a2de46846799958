// # internal/resolver/python.go
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"retest/internal/parser"
)

// PackageMarker is the file whose presence makes a directory an importable
// Python package.
const PackageMarker = "__init__.py"

// ModuleName derives the dotted module identity for a Python file.
//
// Ancestor directories that contain __init__.py form the package prefix; the
// file stem is appended unless the file is itself a package marker. When no
// package ancestry exists the dotted path relative to root is used instead.
// The file itself does not need to exist, only its directories are consulted,
// which lets callers guess identities for deleted files.
func ModuleName(root, path string) string {
	var packageParts []string

	dir := filepath.Dir(path)
	for dir != "" {
		if _, err := os.Stat(filepath.Join(dir, PackageMarker)); err != nil {
			break
		}
		packageParts = append(packageParts, filepath.Base(dir))
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// Collected innermost first; the identity reads outermost first.
	for i, j := 0, len(packageParts)-1; i < j; i, j = i+1, j-1 {
		packageParts[i], packageParts[j] = packageParts[j], packageParts[i]
	}

	stem := strings.TrimSuffix(filepath.Base(path), ".py")

	if stem == "__init__" {
		return strings.Join(packageParts, ".")
	}

	if len(packageParts) > 0 {
		return strings.Join(append(packageParts, stem), ".")
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	if len(parts) > 0 {
		parts[len(parts)-1] = strings.TrimSuffix(parts[len(parts)-1], ".py")
	}
	return strings.Join(parts, ".")
}

// ResolveTarget turns one raw import declaration into a fully qualified dotted
// candidate. The boolean is false when the import cannot name anything, e.g.
// a bare `from . import *` at the top level.
//
// Relative imports pop `level` trailing components off the originating module,
// except that a package marker's own level-1 import refers to the package
// itself, so nothing is popped.
func ResolveTarget(currentModule string, isPackage bool, spec parser.ImportSpec) (string, bool) {
	var parts []string

	if spec.Level > 0 {
		parts = strings.Split(currentModule, ".")
		if !(isPackage && spec.Level == 1) {
			pops := spec.Level
			if pops > len(parts) {
				pops = len(parts)
			}
			parts = parts[:len(parts)-pops]
		}
	}

	if spec.Module != "" {
		parts = append(parts, strings.Split(spec.Module, ".")...)
	}

	// `from x import y` resolves to x.y unless y is the wildcard.
	if spec.Kind == parser.KindImportFrom && spec.Name != "" && spec.Name != "*" {
		parts = append(parts, spec.Name)
	}

	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		return "", false
	}
	return strings.Join(parts, "."), true
}

// IsPythonFile reports whether path names a Python source file.
func IsPythonFile(path string) bool {
	return filepath.Ext(path) == ".py"
}

// IsTestFile applies the pytest collection convention to a path.
func IsTestFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test.py")
}

// IsPackageFile reports whether path is a package marker file.
func IsPackageFile(path string) bool {
	return filepath.Base(path) == PackageMarker
}
