// # internal/git/git.go
package git

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ChangeOptions selects which git diff sources feed the changed-file set.
type ChangeOptions struct {
	DiffRef   string // diff against this ref
	MergeBase string // diff against merge-base(ref, HEAD); implies DiffRef
	Staged    bool   // include `git diff --cached`
	Worktree  bool   // include staged + unstaged vs HEAD
}

// Changed returns the union of the requested diff sources as absolute paths,
// deduplicated and sorted.
func Changed(cwd string, opts ChangeOptions) ([]string, error) {
	var paths []string

	if opts.Staged {
		out, err := nameOnly(cwd, "diff", "--name-only", "--cached")
		if err != nil {
			return nil, err
		}
		paths = append(paths, out...)
	}

	if opts.Worktree {
		out, err := nameOnly(cwd, "diff", "--name-only", "HEAD")
		if err != nil {
			return nil, err
		}
		paths = append(paths, out...)
	}

	diffRef := opts.DiffRef
	if diffRef == "" && opts.MergeBase != "" {
		diffRef = opts.MergeBase
	}

	if diffRef != "" {
		base := diffRef
		if opts.MergeBase != "" {
			sha, err := run(cwd, "merge-base", base, "HEAD")
			if err != nil {
				return nil, err
			}
			base = strings.TrimSpace(sha)
		}
		out, err := nameOnly(cwd, "diff", "--name-only", base+"..HEAD")
		if err != nil {
			return nil, err
		}
		paths = append(paths, out...)
	}

	unique := make(map[string]bool, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		unique[p] = true
	}

	result := make([]string, 0, len(unique))
	for p := range unique {
		result = append(result, p)
	}
	sort.Strings(result)
	return result, nil
}

// CommitMetadata returns the short hash and commit time of HEAD, or zero
// values when root is not a git checkout.
func CommitMetadata(root string) (string, time.Time) {
	hash, err := run(root, "rev-parse", "--short=12", "HEAD")
	if err != nil {
		return "", time.Time{}
	}
	hash = strings.TrimSpace(hash)

	raw, err := run(root, "show", "-s", "--format=%cI", "HEAD")
	if err != nil || hash == "" {
		return "", time.Time{}
	}

	commitTime, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return hash, time.Time{}
	}
	return hash, commitTime.UTC()
}

func nameOnly(cwd string, args ...string) ([]string, error) {
	out, err := run(cwd, args...)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// splitLines drops blank lines from `git diff --name-only` output.
func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func run(cwd string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", cwd}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
