// # internal/git/git_test.go
package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in       string
		expected []string
	}{
		{"a.py\nb.py\n", []string{"a.py", "b.py"}},
		{"\n\na.py\n  \n", []string{"a.py"}},
		{"", nil},
	}

	for _, tt := range tests {
		if got := splitLines(tt.in); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("splitLines(%q) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}

// initRepo sets up a throwaway repository with one commit.
func initRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	mustGit(t, root, "init")
	mustGit(t, root, "config", "user.email", "test@example.com")
	mustGit(t, root, "config", "user.name", "test")

	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mustGit(t, root, "add", ".")
	mustGit(t, root, "commit", "-m", "initial")

	return root
}

func mustGit(t *testing.T, root string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", root}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("git unavailable or failed (%v): %s", err, out)
	}
}

func TestChanged_Staged(t *testing.T) {
	root := initRepo(t)

	if err := os.WriteFile(filepath.Join(root, "b.py"), []byte("y = 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mustGit(t, root, "add", "b.py")

	paths, err := Changed(root, ChangeOptions{Staged: true})
	if err != nil {
		t.Fatalf("Changed failed: %v", err)
	}

	want := []string{filepath.Join(root, "b.py")}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Changed = %v, expected %v", paths, want)
	}
}

func TestChanged_WorktreeDeduplicates(t *testing.T) {
	root := initRepo(t)

	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mustGit(t, root, "add", "a.py")

	// Staged and worktree both report a.py; the union must contain it once.
	paths, err := Changed(root, ChangeOptions{Staged: true, Worktree: true})
	if err != nil {
		t.Fatalf("Changed failed: %v", err)
	}

	want := []string{filepath.Join(root, "a.py")}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Changed = %v, expected %v", paths, want)
	}
}

func TestChanged_NoSourcesYieldsNothing(t *testing.T) {
	root := initRepo(t)

	paths, err := Changed(root, ChangeOptions{})
	if err != nil {
		t.Fatalf("Changed failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("Changed = %v, expected none", paths)
	}
}

func TestCommitMetadata(t *testing.T) {
	root := initRepo(t)

	hash, ts := CommitMetadata(root)
	if hash == "" {
		t.Fatal("Expected a commit hash")
	}
	if len(hash) != 12 {
		t.Errorf("Hash = %q, expected 12 characters", hash)
	}
	if ts.IsZero() {
		t.Error("Expected a commit timestamp")
	}
}

func TestCommitMetadata_NotARepo(t *testing.T) {
	hash, ts := CommitMetadata(t.TempDir())
	if hash != "" || !ts.IsZero() {
		t.Errorf("Expected zero metadata outside a repo, got %q %v", hash, ts)
	}
}
