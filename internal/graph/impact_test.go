// # internal/graph/impact_test.go
package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"retest/internal/index"
)

func writeFile(t *testing.T, root, relative, contents string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relative))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// chainProject builds pkg/core.py <- pkg/service.py <- tests/test_service.py.
func chainProject(t *testing.T) (*index.ProjectIndex, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	corePath := writeFile(t, root, "pkg/core.py", "")
	writeFile(t, root, "pkg/service.py", "from pkg import core\n")
	writeFile(t, root, "tests/test_service.py", "from pkg import service\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return idx, corePath
}

func quietOpts() Options {
	return Options{DistanceLimit: -1, Quiet: true, Diagnostics: &bytes.Buffer{}}
}

func resultPaths(sel *Selection) []string {
	paths := make([]string, 0, len(sel.Results))
	for _, r := range sel.Results {
		paths = append(paths, filepath.ToSlash(r.Path))
	}
	return paths
}

func TestSelect_TransitiveChain(t *testing.T) {
	idx, corePath := chainProject(t)

	sel, err := Select(idx, []string{corePath}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if got := resultPaths(sel); !reflect.DeepEqual(got, []string{"tests/test_service.py"}) {
		t.Fatalf("Results = %v, expected [tests/test_service.py]", got)
	}
	if sel.Results[0].Distance != 2 {
		t.Errorf("Distance = %d, expected 2", sel.Results[0].Distance)
	}
}

func TestSelect_DistanceMonotonicity(t *testing.T) {
	idx, corePath := chainProject(t)

	sel, err := Select(idx, []string{corePath}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if sel.Distances["pkg.core"] != 0 {
		t.Errorf("Seed distance = %d, expected 0", sel.Distances["pkg.core"])
	}
	if sel.Distances["pkg.service"] != 1 {
		t.Errorf("Direct importer distance = %d, expected 1", sel.Distances["pkg.service"])
	}
	if sel.Distances["tests.test_service"] != 2 {
		t.Errorf("Transitive importer distance = %d, expected 2", sel.Distances["tests.test_service"])
	}
}

func TestSelect_DistanceLimitGatesExpansion(t *testing.T) {
	idx, corePath := chainProject(t)

	// At limit 1 the service module is still impacted but stops propagating,
	// so the test at distance 2 disappears.
	opts := quietOpts()
	opts.DistanceLimit = 1
	sel, err := Select(idx, []string{corePath}, opts)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(sel.Results) != 0 {
		t.Errorf("Results = %v, expected none at limit 1", resultPaths(sel))
	}
	if _, ok := sel.Distances["pkg.service"]; !ok {
		t.Error("Module at the limit must still be impacted")
	}
	if _, ok := sel.Distances["tests.test_service"]; ok {
		t.Error("Module beyond the limit must not be impacted")
	}

	// At limit 2 the test is included again.
	opts.DistanceLimit = 2
	sel, err = Select(idx, []string{corePath}, opts)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if got := resultPaths(sel); !reflect.DeepEqual(got, []string{"tests/test_service.py"}) {
		t.Errorf("Results = %v, expected [tests/test_service.py] at limit 2", got)
	}
}

func TestSelect_DistanceLimitZeroKeepsSeeds(t *testing.T) {
	idx, _ := chainProject(t)
	testPath := filepath.Join(idx.Root, "tests", "test_service.py")

	opts := quietOpts()
	opts.DistanceLimit = 0
	sel, err := Select(idx, []string{testPath}, opts)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// A changed test seeds at distance 0 and survives even a zero limit.
	if got := resultPaths(sel); !reflect.DeepEqual(got, []string{"tests/test_service.py"}) {
		t.Errorf("Results = %v, expected the changed test itself", got)
	}
}

func TestSelect_DeletedFileSeeding(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	writeFile(t, root, "tests/test_foo.py", "from pkg import foo\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// pkg/foo.py was deleted before the scan; its path is all we have.
	deleted := filepath.Join(root, "pkg", "foo.py")
	sel, err := Select(idx, []string{deleted}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if got := resultPaths(sel); !reflect.DeepEqual(got, []string{"tests/test_foo.py"}) {
		t.Errorf("Results = %v, expected [tests/test_foo.py]", got)
	}

	found := false
	for _, w := range sel.Warnings {
		if strings.Contains(w, "not indexed") && strings.Contains(w, "pkg.foo") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a not-indexed warning for the deleted file, got %v", sel.Warnings)
	}
}

func TestSelect_UnmappableChangedFileIsNoop(t *testing.T) {
	idx, _ := chainProject(t)

	sel, err := Select(idx, []string{filepath.Join(idx.Root, "elsewhere", "ghost.py")}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(sel.Results) != 0 {
		t.Errorf("Results = %v, expected none for an unmappable seed", resultPaths(sel))
	}
	if len(sel.Seeds) != 1 {
		t.Errorf("Seeds = %v, expected the raw guessed identity", sel.Seeds)
	}
}

func TestSelect_ConftestNeverSelected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	corePath := writeFile(t, root, "pkg/core.py", "")
	writeFile(t, root, "tests/conftest.py", "from pkg import core\n")
	writeFile(t, root, "tests/test_real.py", "from pkg import core\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	sel, err := Select(idx, []string{corePath}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if got := resultPaths(sel); !reflect.DeepEqual(got, []string{"tests/test_real.py"}) {
		t.Errorf("Results = %v, expected only tests/test_real.py", got)
	}
	if _, ok := sel.Distances["tests.conftest"]; !ok {
		t.Error("conftest should be impacted, just never selected")
	}
}

func TestSelect_RankingPrefersMatchingFilename(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	fooPath := writeFile(t, root, "pkg/foo.py", "")
	writeFile(t, root, "tests/test_foo_extra.py", "from pkg import foo\n")
	writeFile(t, root, "tests/test_bar.py", "from pkg import foo\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	sel, err := Select(idx, []string{fooPath}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	want := []string{"tests/test_foo_extra.py", "tests/test_bar.py"}
	if got := resultPaths(sel); !reflect.DeepEqual(got, want) {
		t.Errorf("Results = %v, expected %v", got, want)
	}
}

func TestSelect_MaxTruncates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	corePath := writeFile(t, root, "pkg/core.py", "")
	writeFile(t, root, "tests/test_a.py", "from pkg import core\n")
	writeFile(t, root, "tests/test_b.py", "from pkg import core\n")
	writeFile(t, root, "tests/test_c.py", "from pkg import core\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	opts := quietOpts()
	opts.Max = 2
	sel, err := Select(idx, []string{corePath}, opts)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(sel.Results) != 2 {
		t.Errorf("Results = %v, expected 2 after truncation", resultPaths(sel))
	}
}

func TestSelect_Idempotent(t *testing.T) {
	idx, corePath := chainProject(t)

	first, err := Select(idx, []string{corePath}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	second, err := Select(idx, []string{corePath}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Errorf("Two runs differ: %v vs %v", first.Results, second.Results)
	}
	if !reflect.DeepEqual(first.Warnings, second.Warnings) {
		t.Errorf("Warning order differs: %v vs %v", first.Warnings, second.Warnings)
	}
}

func TestSelect_UnresolvedInternalImportWarns(t *testing.T) {
	root := t.TempDir()
	// pkg has no __init__.py, so `import pkg` cannot resolve even though
	// pkg.core is a known module.
	corePath := writeFile(t, root, "pkg/core.py", "")
	writeFile(t, root, "app.py", "import pkg\nimport requests\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var diag bytes.Buffer
	sel, err := Select(idx, []string{corePath}, Options{DistanceLimit: -1, Diagnostics: &diag})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if len(sel.Warnings) != 1 || !strings.Contains(sel.Warnings[0], "`pkg`") {
		t.Fatalf("Warnings = %v, expected exactly one for `pkg`", sel.Warnings)
	}
	// The third-party import must stay silent.
	if strings.Contains(diag.String(), "requests") {
		t.Errorf("Diagnostics mention a third-party import: %s", diag.String())
	}
	if !strings.Contains(diag.String(), "Warning: Unresolved import `pkg`") {
		t.Errorf("Diagnostics missing the warning line: %s", diag.String())
	}
}

func TestSelect_QuietSuppressesEmissionNotCollection(t *testing.T) {
	root := t.TempDir()
	corePath := writeFile(t, root, "pkg/core.py", "")
	writeFile(t, root, "app.py", "import pkg\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var diag bytes.Buffer
	sel, err := Select(idx, []string{corePath}, Options{DistanceLimit: -1, Quiet: true, Diagnostics: &diag})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if diag.Len() != 0 {
		t.Errorf("Quiet run wrote diagnostics: %s", diag.String())
	}
	if len(sel.Warnings) == 0 {
		t.Error("Quiet run must still collect warnings")
	}
}

func TestSelect_WarnAsError(t *testing.T) {
	root := t.TempDir()
	corePath := writeFile(t, root, "pkg/core.py", "")
	writeFile(t, root, "app.py", "import pkg\n")
	writeFile(t, root, "tests/test_core.py", "import pkg.core\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	opts := quietOpts()
	opts.WarnAsError = true
	sel, err := Select(idx, []string{corePath}, opts)
	if err == nil {
		t.Fatal("Expected warnings-as-errors to fail the run")
	}
	if !strings.Contains(err.Error(), "1 warnings") {
		t.Errorf("Error = %v, expected warning count", err)
	}
	// Escalation happens after the computation; results are still there.
	if sel == nil || len(sel.Results) != 1 {
		t.Error("Expected the full result set despite escalation")
	}
}

// A deleted changed file produces a not-indexed warning, and that warning
// counts toward escalation like any other.
func TestSelect_WarnAsErrorCountsDeletedFileWarning(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	writeFile(t, root, "tests/test_foo.py", "from pkg import foo\n")

	idx, err := index.Build(root, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	opts := quietOpts()
	opts.WarnAsError = true
	deleted := filepath.Join(root, "pkg", "foo.py")
	sel, err := Select(idx, []string{deleted}, opts)
	if err == nil {
		t.Fatal("Expected the not-indexed warning to fail the run")
	}
	if !strings.Contains(err.Error(), "not indexed") {
		t.Errorf("Error = %v, expected the first warning in the message", err)
	}
	// The selection itself is still complete.
	if sel == nil || !reflect.DeepEqual(resultPaths(sel), []string{"tests/test_foo.py"}) {
		t.Errorf("Expected full results despite escalation, got %v", sel)
	}
}

func TestSelect_EdgesCoverImpactedSubgraph(t *testing.T) {
	idx, corePath := chainProject(t)

	sel, err := Select(idx, []string{corePath}, quietOpts())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if !reflect.DeepEqual(sel.Edges["pkg.core"], []string{"pkg.service"}) {
		t.Errorf("Edges[pkg.core] = %v", sel.Edges["pkg.core"])
	}
	if !reflect.DeepEqual(sel.Edges["pkg.service"], []string{"tests.test_service"}) {
		t.Errorf("Edges[pkg.service] = %v", sel.Edges["pkg.service"])
	}
}
