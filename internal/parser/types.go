// # internal/parser/types.go
package parser

import (
	"time"
)

type File struct {
	Path     string
	Module   string // Fully qualified dotted module name, filled in by the indexer
	Imports  []ImportSpec
	ParsedAt time.Time
}

// ImportSpec is the raw, unresolved shape of a single import declaration.
// A statement importing several names produces one spec per name.
type ImportSpec struct {
	Level    int    // Leading dots of a relative import; 0 = absolute
	Module   string // "from" target or plain import target, may be empty
	Name     string // Imported symbol for from-imports; "*" for wildcard
	Kind     ImportKind
	Location Location
}

type ImportKind int

const (
	KindImport ImportKind = iota // import a.b
	KindImportFrom               // from a.b import c
)

type Location struct {
	File   string
	Line   int
	Column int
}
