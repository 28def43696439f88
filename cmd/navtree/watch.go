package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lthms/navtree/internal/hierarchy"
	"github.com/lthms/navtree/internal/store"
)

const watchDebounce = 500 * time.Millisecond

// WatchCmd re-checks an index every time it is written.
type WatchCmd struct {
	File   string `arg:"" name:"file" help:"Hierarchy index."`
	Import bool   `help:"Store a snapshot after every clean check."`
	Label  string `short:"L" default:"default" help:"Label for imported snapshots."`
	Links  bool   `help:"Also check links against the page names Doxygen derives."`
}

// watcher holds what a re-check needs.
type watcher struct {
	path  string
	label string
	opts  hierarchy.Options
	env   *Env
	store *store.Store // nil unless importing
}

// Run checks once, then again after each burst of changes, until
// interrupted.
func (cmd *WatchCmd) Run(ctx context.Context, env *Env) error {
	abs, err := filepath.Abs(cmd.File)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cmd.File, err)
	}

	w := &watcher{
		path:  abs,
		label: cmd.Label,
		opts:  hierarchy.Options{CheckLinks: cmd.Links || env.Config.Check.Links},
		env:   env,
	}
	if cmd.Import {
		s, err := openStore(env)
		if err != nil {
			return err
		}
		defer s.Close()
		w.store = s
	}

	fsw, err := watchDir(abs)
	if err != nil {
		return err
	}
	defer fsw.Close()
	slog.Info("watching", "file", abs)

	w.recheck(ctx)
	return w.loop(ctx, fsw)
}

// watchDir watches the directory holding path. Editors and generators
// replace the file rather than write it in place.
func watchDir(path string) (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return fsw, nil
}

func (w *watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("watch stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("file changed", "op", event.Op.String())

			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			w.recheck(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// recheck validates the file, prints its findings and imports it when it
// is clean. It reports whether the file was clean.
func (w *watcher) recheck(ctx context.Context) bool {
	r := checkFile(w.path, w.opts)
	fmt.Fprintf(w.env.Stdout, "--- %s %s\n", time.Now().Format(time.TimeOnly), filepath.Base(w.path))
	writeResult(w.env.Stdout, r, hierarchy.SeverityWarning)
	if r.Failed() {
		return false
	}
	fmt.Fprintf(w.env.Stdout, "ok: %d entries, %d classes\n", r.Report.Nodes, r.Report.Classes)

	if w.store == nil {
		return true
	}
	if err := importSnapshot(ctx, w.env, w.store, w.label, w.path, r.Forest); err != nil {
		slog.Error("import failed", "error", err)
	}
	return true
}
