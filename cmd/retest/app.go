// # cmd/retest/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"retest/internal/config"
	"retest/internal/git"
	"retest/internal/graph"
	"retest/internal/history"
	"retest/internal/index"
	"retest/internal/output"
	"retest/internal/shared/observability"
	"retest/internal/shared/util"
	"retest/internal/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

type App struct {
	Config *config.Config
	Root   string

	history    *history.Store
	metrics    *observability.MetricsServer
	limiter    *util.Limiter
	teaProgram *tea.Program

	// Serializes selection runs; watch events and the initial run share state.
	runMu     sync.Mutex
	lastIndex *index.ProjectIndex
}

func NewApp(cfg *config.Config, root string) (*App, error) {
	a := &App{
		Config:  cfg,
		Root:    root,
		limiter: util.NewLimiter(cfg.Watch.RescansPerMinute/60.0, 1),
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		a.history = store
	}

	return a, nil
}

func (a *App) Close() {
	if a.history != nil {
		a.history.Close()
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.metrics.Stop(ctx)
	}
}

// RunSelection rebuilds the project index and computes the impacted tests for
// the given changed files. The selection is returned even when warnings are
// escalated to an error.
func (a *App) RunSelection(changed []string) (*graph.Selection, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	idx, err := index.Build(a.Root, a.Config.Exclude.Dirs, a.Config.Exclude.Files)
	if err != nil {
		return nil, err
	}
	a.lastIndex = idx

	sel, selErr := graph.Select(idx, changed, graph.Options{
		Max:           a.Config.Select.Max,
		DistanceLimit: a.Config.Select.DistanceLimit,
		Quiet:         *quiet,
		WarnAsError:   *warnAsError,
	})
	if sel == nil {
		return nil, selErr
	}

	if err := a.GenerateOutputs(sel); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	a.recordSnapshot(idx, sel)

	return sel, selErr
}

func (a *App) GenerateOutputs(sel *graph.Selection) error {
	if a.Config.Output.TSV != "" {
		tsv, err := output.NewTSVGenerator(sel).Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.Config.Output.TSV, []byte(tsv), 0644); err != nil {
			return err
		}
	}

	if a.Config.Output.DOT != "" {
		dot, err := output.NewDOTGenerator(sel).Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.Config.Output.DOT, []byte(dot), 0644); err != nil {
			return err
		}
	}

	if a.Config.Output.JSON != "" {
		data, err := output.NewJSONGenerator(sel).Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.Config.Output.JSON, []byte(data), 0644); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) recordSnapshot(idx *index.ProjectIndex, sel *graph.Selection) {
	if a.history == nil {
		return
	}

	hash, committed := git.CommitMetadata(a.Root)
	snapshot := history.Snapshot{
		SchemaVersion:   history.SchemaVersion,
		Timestamp:       time.Now().UTC(),
		CommitHash:      hash,
		CommitTimestamp: committed,
		ModuleCount:     len(idx.Modules),
		FileCount:       len(idx.PathToModule),
		ChangedCount:    len(sel.Changed),
		ImpactedCount:   len(sel.Results),
		WarningCount:    len(sel.Warnings),
		DurationMS:      sel.Duration.Milliseconds(),
	}

	if err := a.history.SaveSnapshot(snapshot); err != nil {
		slog.Warn("failed to record run snapshot", "error", err)
	}
}

func (a *App) PrintDryRun(sel *graph.Selection) {
	fmt.Fprintf(os.Stderr, "Root: %s\n", sel.Root)
	fmt.Fprintf(os.Stderr, "Changed files (%d):\n", len(sel.Changed))
	for _, p := range sel.Changed {
		fmt.Fprintf(os.Stderr, "  - %s\n", p)
	}
	fmt.Fprintf(os.Stderr, "\nSelected tests (%d):\n", len(sel.Results))
	for _, res := range sel.Results {
		fmt.Fprintf(os.Stderr, "  - %s (distance=%d, filename_match=%d)\n",
			res.Path, res.Distance, res.Priority.FilenameMatch)
	}
}

// HandleChanges re-runs the selection for a debounced batch of watcher events.
func (a *App) HandleChanges(paths []string) {
	changed := filterPythonFiles(paths)
	if len(changed) == 0 {
		return
	}

	if !a.limiter.Allow(1) {
		slog.Debug("rescan throttled", "pending", len(changed))
		return
	}

	slog.Info("detected changes", "count", len(changed))

	sel, err := a.RunSelection(changed)
	if sel == nil {
		slog.Error("selection failed", "error", err)
		return
	}

	if a.teaProgram != nil {
		a.teaProgram.Send(updateMsg{
			results:     sel.Results,
			warnings:    len(sel.Warnings),
			changed:     len(sel.Changed),
			moduleCount: len(a.lastIndex.Modules),
			fileCount:   len(a.lastIndex.PathToModule),
		})
		return
	}

	fmt.Printf("\n# %d changed -> %d impacted (%v)\n", len(sel.Changed), len(sel.Results), sel.Duration.Round(time.Millisecond))
	for _, res := range sel.Results {
		fmt.Println(res.Path)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
	}
}

func (a *App) StartMetrics(addr string) {
	a.metrics = observability.NewMetricsServer(addr)
	if err := a.metrics.Start(); err != nil {
		slog.Error("failed to start metrics server", "error", err)
	}
}

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	// Runs until process exit.
	return w.Watch(a.Root)
}

func (a *App) RunUI(initial *graph.Selection) error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	if initial != nil {
		go func() {
			a.runMu.Lock()
			idx := a.lastIndex
			a.runMu.Unlock()

			msg := updateMsg{
				results:  initial.Results,
				warnings: len(initial.Warnings),
				changed:  len(initial.Changed),
			}
			if idx != nil {
				msg.moduleCount = len(idx.Modules)
				msg.fileCount = len(idx.PathToModule)
			}
			p.Send(msg)
		}()
	}

	_, err := p.Run()
	return err
}
