// # internal/priority/priority_test.go
package priority

import (
	"testing"
)

func leaves(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func TestCompute(t *testing.T) {
	tests := []struct {
		desc     string
		path     string
		distance int
		leaves   map[string]bool
		match    int
	}{
		{"prefix match is best", "tests/test_foo.py", 0, leaves("foo"), 0},
		{"underscore match is best", "tests/integration_bar_test.py", 2, leaves("bar"), 0},
		{"extra suffix still matches", "tests/test_foo_extra.py", 1, leaves("foo"), 0},
		{"bare substring is secondary", "tests/myfoothing.py", 1, leaves("foo"), 1},
		{"unrelated file ranks last", "tests/other.py", 5, leaves("foo"), 2},
		{"empty leaf set never matches", "tests/test_foo.py", 1, leaves(), 2},
		{"weak hit on one leaf, strong on another", "tests/test_bar.py", 1, leaves("ar", "bar"), 0},
	}

	for _, tt := range tests {
		p := Compute(tt.path, tt.distance, tt.leaves)
		if p.FilenameMatch != tt.match {
			t.Errorf("%s: FilenameMatch = %d, expected %d", tt.desc, p.FilenameMatch, tt.match)
		}
		if p.Distance != tt.distance {
			t.Errorf("%s: Distance = %d, expected %d", tt.desc, p.Distance, tt.distance)
		}
	}
}

func TestLess(t *testing.T) {
	tests := []struct {
		a, b Priority
		less bool
	}{
		{Priority{0, 5}, Priority{1, 0}, true},  // filename match dominates
		{Priority{1, 1}, Priority{1, 2}, true},  // distance breaks ties
		{Priority{1, 2}, Priority{1, 2}, false}, // equal is not less
		{Priority{2, 0}, Priority{0, 9}, false},
	}

	for i, tt := range tests {
		if got := tt.a.Less(tt.b); got != tt.less {
			t.Errorf("case %d: %+v.Less(%+v) = %v, expected %v", i, tt.a, tt.b, got, tt.less)
		}
	}
}
