// Package store keeps a history of parsed hierarchy indexes in SQLite so
// that documentation runs can be compared over time.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/lthms/navtree/internal/hierarchy"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a snapshot or class does not exist.
var ErrNotFound = errors.New("store: not found")

// Snapshot describes one stored index.
type Snapshot struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	Source    string `json:"source"`
	Var       string `json:"var"`
	Digest    string `json:"digest"`
	Entries   int    `json:"entries"`
	CreatedAt string `json:"created_at"`
}

// Occurrence is one place a class appears in a stored snapshot.
type Occurrence struct {
	SnapshotID int64  `json:"snapshot_id"`
	Label      string `json:"label"`
	Parent     string `json:"parent"` // empty for top-level entries
	Link       string `json:"link"`   // empty for synthetic entries
}

// Store provides snapshot storage backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the store at the given path.
func Open(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Digest returns the hex SHA-256 of the canonical encoding of f.
func Digest(f *hierarchy.Forest) string {
	sum := sha256.Sum256(hierarchy.Encode(f))
	return hex.EncodeToString(sum[:])
}

// Import stores f under label. If the latest snapshot with the same label
// has the same digest, nothing is written and that snapshot is returned
// with created == false.
func (s *Store) Import(ctx context.Context, label, source string, f *hierarchy.Forest) (snap Snapshot, created bool, err error) {
	digest := Digest(f)

	latest, err := s.Latest(ctx, label)
	switch {
	case err == nil && latest.Digest == digest:
		return latest, false, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Snapshot{}, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	snap = Snapshot{
		Label:     label,
		Source:    source,
		Var:       f.Var,
		Digest:    digest,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (label, source, var, digest, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.Label, snap.Source, snap.Var, snap.Digest, snap.CreatedAt,
	)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("insert snapshot: %w", err)
	}
	snap.ID, err = res.LastInsertId()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (snapshot_id, parent_id, position, name, link, form, line) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	var insert func(nodes []*hierarchy.Node, parent sql.NullInt64) error
	insert = func(nodes []*hierarchy.Node, parent sql.NullInt64) error {
		for pos, n := range nodes {
			var link sql.NullString
			if n.Link != nil {
				link = sql.NullString{String: *n.Link, Valid: true}
			}
			res, err := stmt.ExecContext(ctx, snap.ID, parent, pos, n.Name, link, int(n.Form), n.Line)
			if err != nil {
				return fmt.Errorf("insert entry %q: %w", n.Name, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
			snap.Entries++
			if err := insert(n.Children, sql.NullInt64{Int64: id, Valid: true}); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(f.Roots, sql.NullInt64{}); err != nil {
		return Snapshot{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, false, fmt.Errorf("commit import: %w", err)
	}
	return snap, true, nil
}
