// # internal/parser/python.go
package parser

import (
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		ParsedAt: time.Now(),
	}

	e.walk(root, source, file)

	return file, nil
}

// walk visits every statement, nested ones included. Only the two
// import-bearing node kinds matter; everything else is passed through.
func (e *PythonExtractor) walk(node *sitter.Node, source []byte, file *File) {
	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, file)
	case "import_from_statement":
		e.extractFromImport(node, source, file)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, file)
	}
}

// extractImport handles `import a.b, c as d`, one spec per imported name.
func (e *PythonExtractor) extractImport(node *sitter.Node, source []byte, file *File) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "dotted_name", "identifier":
			file.Imports = append(file.Imports, ImportSpec{
				Module:   e.getText(child, source),
				Kind:     KindImport,
				Location: e.getLocation(child, file.Path),
			})
		case "aliased_import":
			// The alias is irrelevant for dependency purposes; keep the target.
			if name := child.ChildByFieldName("name"); name != nil {
				file.Imports = append(file.Imports, ImportSpec{
					Module:   e.getText(name, source),
					Kind:     KindImport,
					Location: e.getLocation(child, file.Path),
				})
			}
		}
	}
}

// extractFromImport handles `from [dots][module] import name[, name...]`.
func (e *PythonExtractor) extractFromImport(node *sitter.Node, source []byte, file *File) {
	var module string
	level := 0
	var names []string

	sawImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "relative_import":
			level, module = e.splitRelative(child, source)

		case "import":
			sawImport = true

		case "dotted_name", "identifier":
			if !sawImport {
				module = e.getText(child, source)
			} else {
				names = append(names, e.getText(child, source))
			}

		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, e.getText(name, source))
			}

		case "wildcard_import":
			names = append(names, "*")
		}
	}

	loc := e.getLocation(node, file.Path)
	for _, name := range names {
		file.Imports = append(file.Imports, ImportSpec{
			Level:    level,
			Module:   module,
			Name:     name,
			Kind:     KindImportFrom,
			Location: loc,
		})
	}
}

// splitRelative takes a relative_import node (`..pkg` or `.`) and returns the
// dot count plus the trailing dotted module, which may be empty.
func (e *PythonExtractor) splitRelative(node *sitter.Node, source []byte) (int, string) {
	level := 0
	module := ""
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import_prefix":
			level = strings.Count(e.getText(child, source), ".")
		case "dotted_name", "identifier":
			module = e.getText(child, source)
		}
	}
	return level, module
}

func (e *PythonExtractor) getLocation(node *sitter.Node, filePath string) Location {
	return Location{
		File:   filePath,
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func (e *PythonExtractor) getText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
