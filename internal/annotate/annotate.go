// # internal/annotate/annotate.go
//
// Converts pytest JUnit XML reports into GitHub Actions log annotations so CI
// failures surface inline on the pull request diff.
package annotate

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

type Options struct {
	IncludeSkipped bool
	Cwd            string // annotation file paths are relativized against this
}

// JUnit reports come with either <testsuites> or a bare <testsuite> root;
// leaving XMLName off the struct accepts both.
type suite struct {
	Suites []suite    `xml:"testsuite"`
	Cases  []testcase `xml:"testcase"`
}

type testcase struct {
	Classname string  `xml:"classname,attr"`
	Name      string  `xml:"name,attr"`
	File      string  `xml:"file,attr"`
	Line      string  `xml:"line,attr"`
	Failure   *detail `xml:"failure"`
	Error     *detail `xml:"error"`
	Skipped   *detail `xml:"skipped"`
}

type detail struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// Typical pytest traceback fragment: File "/path/to/test.py", line 12
var fileLineRe = regexp.MustCompile(`File "([^"]+)", line (\d+)`)

// FormatJUnit reads a JUnit XML report and writes one annotation line per
// failed (and, optionally, skipped) test case to w.
func FormatJUnit(w io.Writer, reportPath string, opts Options) error {
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("read report %s: %w", reportPath, err)
	}

	var root suite
	if err := xml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parse XML in %s: %w", reportPath, err)
	}

	reported := 0
	walkCases(&root, func(tc *testcase) {
		if d := firstOf(tc.Failure, tc.Error); d != nil {
			file, line := deriveLocation(tc, d)
			message := fmt.Sprintf("%s: %s", caseName(tc), pickMessage(d, "Test failed"))
			fmt.Fprintln(w, buildAnnotation("error", file, line, message, opts.Cwd))
			reported++
		} else if opts.IncludeSkipped && tc.Skipped != nil {
			file, line := deriveLocation(tc, tc.Skipped)
			message := fmt.Sprintf("%s: %s", caseName(tc), pickMessage(tc.Skipped, "Test skipped"))
			fmt.Fprintln(w, buildAnnotation("warning", file, line, message, opts.Cwd))
			reported++
		}
	})

	if reported == 0 {
		fmt.Fprintf(os.Stderr, "No failures, errors, or skipped tests found in %s\n", reportPath)
	}

	return nil
}

func walkCases(s *suite, visit func(*testcase)) {
	for i := range s.Cases {
		visit(&s.Cases[i])
	}
	for i := range s.Suites {
		walkCases(&s.Suites[i], visit)
	}
}

func firstOf(details ...*detail) *detail {
	for _, d := range details {
		if d != nil {
			return d
		}
	}
	return nil
}

func caseName(tc *testcase) string {
	switch {
	case tc.Classname != "" && tc.Name != "":
		return tc.Classname + "." + tc.Name
	case tc.Name != "":
		return tc.Name
	default:
		return "(unknown test)"
	}
}

// pickMessage prefers the message attribute, then the first non-blank body
// line, then the fallback.
func pickMessage(d *detail, fallback string) string {
	if msg := strings.TrimSpace(d.Message); msg != "" {
		return msg
	}
	for _, line := range strings.Split(d.Body, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

// deriveLocation takes file/line from the testcase attributes, falling back to
// scraping the traceback body.
func deriveLocation(tc *testcase, d *detail) (string, int) {
	line := 0
	if tc.Line != "" {
		if n, err := strconv.Atoi(tc.Line); err == nil {
			line = n
		}
	}
	if tc.File != "" || line > 0 {
		return tc.File, line
	}

	if m := fileLineRe.FindStringSubmatch(d.Body); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], n
	}

	return "", 0
}

func buildAnnotation(level, file string, line int, message, cwd string) string {
	var parts []string
	if file != "" {
		display := file
		if cwd != "" {
			if rel, err := filepath.Rel(cwd, file); err == nil && !strings.HasPrefix(rel, "..") {
				display = rel
			}
		}
		parts = append(parts, "file="+filepath.ToSlash(display))
	}
	if line > 0 {
		parts = append(parts, fmt.Sprintf("line=%d", line))
	}

	prefix := "::" + level
	if len(parts) > 0 {
		prefix += " " + strings.Join(parts, ",")
	}
	return prefix + "::" + escapeForGitHub(message)
}

// escapeForGitHub applies the workflow-command escaping rules for messages.
func escapeForGitHub(message string) string {
	message = strings.ReplaceAll(message, "%", "%25")
	message = strings.ReplaceAll(message, "\r", "%0D")
	message = strings.ReplaceAll(message, "\n", "%0A")
	return message
}
