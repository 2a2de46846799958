// # internal/priority/priority.go
package priority

import (
	"path/filepath"
	"strings"
)

// Priority ranks an impacted test. Compared lexicographically as
// (FilenameMatch, Distance), smaller is better.
type Priority struct {
	FilenameMatch int // 0 = filename names a changed leaf, 2 = no relation
	Distance      int
}

func (p Priority) Less(other Priority) bool {
	if p.FilenameMatch != other.FilenameMatch {
		return p.FilenameMatch < other.FilenameMatch
	}
	return p.Distance < other.Distance
}

// Compute scores a test path against the leaves of the impacted module set.
// A filename like test_foo.py or x_foo_test.py for leaf "foo" is a strong
// match; a bare substring hit is weaker but still beats no relation.
func Compute(path string, distance int, changedLeaves map[string]bool) Priority {
	filename := filepath.Base(path)

	match := 2
	for leaf := range changedLeaves {
		if leaf == "" {
			continue
		}
		if strings.HasPrefix(filename, "test_"+leaf) || strings.Contains(filename, "_"+leaf) {
			match = 0
			break
		}
		if strings.Contains(filename, leaf) && match > 1 {
			match = 1
		}
	}

	return Priority{FilenameMatch: match, Distance: distance}
}
