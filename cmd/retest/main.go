// # cmd/retest/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"retest/internal/annotate"
	"retest/internal/config"
	"retest/internal/git"
	"retest/internal/history"
)

var (
	configPath    = flag.String("config", "./retest.toml", "Path to config file")
	changed       = flag.String("changed", "", "Comma-separated list of changed files (relative to CWD or absolute)")
	gitDiff       = flag.String("git-diff", "", "Diff against this Git ref (e.g. origin/main) to populate changed files")
	gitStaged     = flag.Bool("git-staged", false, "Use staged changes (git diff --cached) to populate changed files")
	gitMergeBase  = flag.String("git-merge-base", "", "Use merge-base with this ref (implies git-diff if not given)")
	gitWorktree   = flag.Bool("git-worktree", false, "Use working tree (staged + unstaged) changes against HEAD")
	rootFlag      = flag.String("root", "", "Project root to scan (defaults to a root derived from the changed files)")
	maxResults    = flag.Int("max", 0, "Maximum number of test files to output, most relevant first (0 = unlimited)")
	distanceLimit = flag.Int("distance-limit", -1, "Limit graph distance from changed modules (0 = only tests in changed modules; -1 = no cap)")
	dryRun        = flag.Bool("dry-run", false, "Print selection diagnostics instead of the plain test list")
	quiet         = flag.Bool("quiet", false, "Suppress warnings on stderr")
	warnAsError   = flag.Bool("warn-as-error", false, "Treat any warning as an error (non-zero exit)")
	watch         = flag.Bool("watch", false, "Keep running and re-select on file changes")
	ui            = flag.Bool("ui", false, "Enable terminal UI mode (implies --watch)")
	metricsAddr   = flag.String("metrics-addr", "", "Expose Prometheus metrics on this address while watching")
	includeSkip   = flag.Bool("include-skipped", false, "format: also annotate skipped tests")
	window        = flag.Duration("window", 7*24*time.Hour, "trends: look-back window for run history")
	verbose       = flag.Bool("verbose", false, "Enable verbose logging")
	version       = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("retest v%s\n", VERSION)
		os.Exit(0)
	}

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	logOutput := os.Stderr
	if *ui {
		// In UI mode, avoid terminal logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err == nil {
			if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
				logOutput = f
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch flag.Arg(0) {
	case "format":
		if flag.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "usage: retest [--include-skipped] format <junit-report.xml>")
			os.Exit(2)
		}
		cwd, _ := os.Getwd()
		err := annotate.FormatJUnit(os.Stdout, flag.Arg(1), annotate.Options{
			IncludeSkipped: *includeSkip,
			Cwd:            cwd,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	case "trends":
		cfg := loadConfig(setFlags["config"])
		if err := printTrends(cfg, *window); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	case "":
		// default selection mode
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		os.Exit(2)
	}

	cfg := loadConfig(setFlags["config"])
	if setFlags["max"] {
		cfg.Select.Max = *maxResults
	}
	if setFlags["distance-limit"] {
		cfg.Select.DistanceLimit = *distanceLimit
	}
	if setFlags["metrics-addr"] {
		cfg.Metrics.Addr = *metricsAddr
	}

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to resolve working directory", "error", err)
		os.Exit(1)
	}

	changedAbs := absolutizeChanged(splitChanged(*changed), cwd)

	gitRequested := *gitStaged || *gitWorktree || *gitDiff != "" || *gitMergeBase != ""
	if len(changedAbs) == 0 || gitRequested {
		gitPaths, err := git.Changed(cwd, git.ChangeOptions{
			DiffRef:   *gitDiff,
			MergeBase: *gitMergeBase,
			Staged:    *gitStaged,
			Worktree:  *gitWorktree,
		})
		if err != nil {
			slog.Error("failed to gather changed files from git", "error", err)
			os.Exit(1)
		}
		changedAbs = append(changedAbs, gitPaths...)
	}

	changedAbs = filterPythonFiles(changedAbs)

	if len(changedAbs) == 0 && !*watch && !*ui {
		if !*quiet {
			fmt.Fprintln(os.Stderr, "Info: no changed Python files detected; skipping.")
		}
		os.Exit(0)
	}

	root := chooseRoot(*rootFlag, changedAbs, cwd)

	app, err := NewApp(cfg, root)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	sel, err := app.RunSelection(changedAbs)
	if err != nil {
		// Warnings escalated to an error: results are complete, exit non-zero.
		if sel != nil && !*quiet {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		if sel == nil {
			slog.Error("selection failed", "error", err)
		}
		if !*watch && !*ui {
			os.Exit(1)
		}
	}

	if sel != nil && !*ui {
		if *dryRun {
			app.PrintDryRun(sel)
		} else {
			for _, res := range sel.Results {
				fmt.Println(res.Path)
			}
		}
	}

	if !*watch && !*ui {
		return
	}

	// Watch mode
	if cfg.Metrics.Addr != "" {
		app.StartMetrics(cfg.Metrics.Addr)
	}
	if err := app.StartWatcher(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(sel); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		select {}
	}
}

func loadConfig(explicit bool) *config.Config {
	cfg, err := config.Load(*configPath)
	if err == nil {
		return cfg
	}
	if explicit {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if cfg, err = config.Load("./retest.example.toml"); err == nil {
		return cfg
	}
	return config.Default()
}

func splitChanged(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func printTrends(cfg *config.Config, window time.Duration) error {
	if cfg.History.Path == "" {
		return fmt.Errorf("run history is disabled; set history.path in the config")
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshots, err := store.LoadSnapshots(time.Now().Add(-window))
	if err != nil {
		return err
	}

	report, err := history.BuildTrendReport(snapshots, window)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "retest", "retest.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "retest", "retest.log")
	}

	return "retest.log"
}
