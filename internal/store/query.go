package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lthms/navtree/internal/hierarchy"
)

const snapshotColumns = `s.id, s.label, s.source, s.var, s.digest, s.created_at,
	(SELECT COUNT(*) FROM entries e WHERE e.snapshot_id = s.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.Label, &snap.Source, &snap.Var, &snap.Digest, &snap.CreatedAt, &snap.Entries)
	return snap, err
}

// Snapshots lists stored snapshots, newest first. An empty label lists all.
func (s *Store) Snapshots(ctx context.Context, label string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots s
		 WHERE ? = '' OR s.label = ?
		 ORDER BY s.id DESC`,
		label, label,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// Latest returns the newest snapshot with the given label.
func (s *Store) Latest(ctx context.Context, label string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots s WHERE s.label = ? ORDER BY s.id DESC LIMIT 1`,
		label,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshot %q: %w", label, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

// Get returns the snapshot with the given id.
func (s *Store) Get(ctx context.Context, id int64) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots s WHERE s.id = ?`, id,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	return snap, nil
}

// Load rebuilds the forest stored as snapshot id.
func (s *Store) Load(ctx context.Context, id int64) (*hierarchy.Forest, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Entries were inserted in preorder, so ordering by id yields every
	// parent before its children and siblings in position order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, name, link, form, line FROM entries WHERE snapshot_id = ? ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	f := &hierarchy.Forest{Var: snap.Var, Roots: []*hierarchy.Node{}}
	nodes := make(map[int64]*hierarchy.Node)
	for rows.Next() {
		var (
			entryID int64
			parent  sql.NullInt64
			link    sql.NullString
			form    int
			n       hierarchy.Node
		)
		if err := rows.Scan(&entryID, &parent, &n.Name, &link, &form, &n.Line); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if link.Valid {
			n.Link = &link.String
		}
		n.Form = hierarchy.ChildForm(form)
		if n.Form == hierarchy.ChildrenList {
			n.Children = []*hierarchy.Node{}
		}
		node := &n
		nodes[entryID] = node

		if !parent.Valid {
			f.Roots = append(f.Roots, node)
			continue
		}
		p, ok := nodes[parent.Int64]
		if !ok {
			return nil, fmt.Errorf("entry %d: parent %d not loaded", entryID, parent.Int64)
		}
		p.Children = append(p.Children, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return f, nil
}

// Delete removes a snapshot and its entries.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// FindClass returns every stored occurrence of name, oldest snapshot first.
func (s *Store) FindClass(ctx context.Context, name string) ([]Occurrence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.snapshot_id, s.label, COALESCE(p.name, ''), COALESCE(e.link, '')
		 FROM entries e
		 JOIN snapshots s ON s.id = e.snapshot_id
		 LEFT JOIN entries p ON p.id = e.parent_id
		 WHERE e.name = ?
		 ORDER BY e.snapshot_id, e.id`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("query class: %w", err)
	}
	defer rows.Close()

	var out []Occurrence
	for rows.Next() {
		var o Occurrence
		if err := rows.Scan(&o.SnapshotID, &o.Label, &o.Parent, &o.Link); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("class %q: %w", name, ErrNotFound)
	}
	return out, nil
}
