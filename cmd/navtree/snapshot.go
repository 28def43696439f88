package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lthms/navtree/internal/hierarchy"
	"github.com/lthms/navtree/internal/store"
)

func openStore(env *Env) (*store.Store, error) {
	path := env.Config.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("store opened", "path", path)
	return s, nil
}

// resolveSnapshot accepts a snapshot id or a label, which names the newest
// snapshot with that label.
func resolveSnapshot(ctx context.Context, s *store.Store, ref string) (store.Snapshot, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.Get(ctx, id)
	}
	return s.Latest(ctx, ref)
}

// ImportCmd stores a snapshot of an index.
type ImportCmd struct {
	File  string `arg:"" name:"file" help:"Hierarchy index (- for stdin)."`
	Label string `short:"L" default:"default" help:"Label to file the snapshot under."`
}

// Run validates the index and stores it unless it matches the newest
// snapshot with the same label.
func (cmd *ImportCmd) Run(ctx context.Context, env *Env) error {
	f, err := loadIndex(cmd.File, hierarchy.Options{})
	if err != nil {
		return err
	}

	s, err := openStore(env)
	if err != nil {
		return err
	}
	defer s.Close()

	return importSnapshot(ctx, env, s, cmd.Label, cmd.File, f)
}

func importSnapshot(ctx context.Context, env *Env, s *store.Store, label, source string, f *hierarchy.Forest) error {
	if abs, err := filepath.Abs(source); err == nil && source != "-" {
		source = abs
	}
	snap, created, err := s.Import(ctx, label, source, f)
	if err != nil {
		return fmt.Errorf("import %s: %w", source, err)
	}
	if !created {
		fmt.Fprintf(env.Stdout, "unchanged: snapshot %d (%s)\n", snap.ID, snap.Label)
		return nil
	}
	slog.Info("imported", "snapshot", snap.ID, "label", snap.Label, "entries", snap.Entries)
	fmt.Fprintf(env.Stdout, "snapshot %d (%s): %d entries\n", snap.ID, snap.Label, snap.Entries)
	return nil
}

// HistoryCmd lists stored snapshots.
type HistoryCmd struct {
	Label string `short:"L" help:"Only list snapshots with this label."`
	JSON  bool   `help:"Print JSON."`
}

// Run prints snapshots newest first.
func (cmd *HistoryCmd) Run(ctx context.Context, env *Env) error {
	s, err := openStore(env)
	if err != nil {
		return err
	}
	defer s.Close()

	snaps, err := s.Snapshots(ctx, cmd.Label)
	if err != nil {
		return err
	}

	if cmd.JSON {
		if snaps == nil {
			snaps = []store.Snapshot{}
		}
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}
	writeSnapshots(env, snaps)
	return nil
}

func writeSnapshots(env *Env, snaps []store.Snapshot) {
	labelWidth := len("LABEL")
	for _, s := range snaps {
		labelWidth = max(labelWidth, len(s.Label))
	}
	fmt.Fprintf(env.Stdout, "%-5s %-*s %7s  %-20s  %s\n", "ID", labelWidth, "LABEL", "ENTRIES", "CREATED", "SOURCE")
	for _, s := range snaps {
		fmt.Fprintf(env.Stdout, "%-5d %-*s %7d  %-20s  %s\n", s.ID, labelWidth, s.Label, s.Entries, s.CreatedAt, s.Source)
	}
}

// DiffSnapshotCmd compares two stored snapshots.
type DiffSnapshotCmd struct {
	Old string `arg:"" name:"old" help:"Snapshot id or label."`
	New string `arg:"" name:"new" help:"Snapshot id or label."`
}

// Run prints the changes and exits with status 1 when there are any.
func (cmd *DiffSnapshotCmd) Run(ctx context.Context, env *Env) error {
	s, err := openStore(env)
	if err != nil {
		return err
	}
	defer s.Close()

	load := func(ref string) (*hierarchy.Forest, error) {
		snap, err := resolveSnapshot(ctx, s, ref)
		if err != nil {
			return nil, err
		}
		return s.Load(ctx, snap.ID)
	}
	old, err := load(cmd.Old)
	if err != nil {
		return err
	}
	cur, err := load(cmd.New)
	if err != nil {
		return err
	}
	return writeChanges(env, hierarchy.Diff(hierarchy.NewIndex(old), hierarchy.NewIndex(cur)))
}

// WhereCmd lists the stored snapshots a class appears in.
type WhereCmd struct {
	Class string `arg:"" name:"class" help:"Class name as listed in the index."`
}

// Run prints one line per occurrence.
func (cmd *WhereCmd) Run(ctx context.Context, env *Env) error {
	s, err := openStore(env)
	if err != nil {
		return err
	}
	defer s.Close()

	occs, err := s.FindClass(ctx, cmd.Class)
	if err != nil {
		return err
	}
	for _, o := range occs {
		parent := o.Parent
		if parent == "" {
			parent = "(top level)"
		}
		link := o.Link
		if link == "" {
			link = "(synthetic)"
		}
		fmt.Fprintf(env.Stdout, "%d\t%s\tunder %s\t%s\n", o.SnapshotID, o.Label, parent, link)
	}
	return nil
}

// ForgetCmd deletes a stored snapshot.
type ForgetCmd struct {
	ID int64 `arg:"" name:"id" help:"Snapshot id."`
}

// Run deletes the snapshot.
func (cmd *ForgetCmd) Run(ctx context.Context, env *Env) error {
	s, err := openStore(env)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(ctx, cmd.ID); err != nil {
		return err
	}
	slog.Info("deleted", "snapshot", cmd.ID)
	return nil
}
