package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lthms/navtree/internal/hierarchy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "navtree.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { s.Close() })
	return s
}

func loadFixture(t *testing.T) ([]byte, *hierarchy.Forest) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "hierarchy", "testdata", "hierarchy.js"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	f, err := hierarchy.ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	return data, f
}

// --- Schema ---

func TestOpen_MigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navtree.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	s2.Close()
}

// --- Import and load ---

func TestImport_LoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	src, f := loadFixture(t)

	snap, created, err := s.Import(ctx, "master", "doc/html/hierarchy.js", f)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !created {
		t.Error("first import should create a snapshot")
	}
	if snap.Entries != 56 {
		t.Errorf("Entries = %d, want 56", snap.Entries)
	}
	if snap.CreatedAt != "2024-05-01T12:00:00Z" {
		t.Errorf("CreatedAt = %q", snap.CreatedAt)
	}

	loaded, err := s.Load(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(f, loaded); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
	if got := hierarchy.Encode(loaded); !bytes.Equal(got, src) {
		t.Error("loaded forest does not re-encode to the original bytes")
	}
}

func TestImport_KeepsChildForms(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	f, err := hierarchy.ParseString(`[ [ "a", null, [ ] ], [ "b", "b.html" ], [ "c", "c.html", null ] ]`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	snap, _, err := s.Import(ctx, "forms", "", f)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	loaded, err := s.Load(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(f, loaded); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_SkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, f := loadFixture(t)

	first, _, err := s.Import(ctx, "master", "", f)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	second, created, err := s.Import(ctx, "master", "", f)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if created {
		t.Error("identical import should not create a snapshot")
	}
	if second.ID != first.ID {
		t.Errorf("second ID = %d, want %d", second.ID, first.ID)
	}

	// The same content under another label is stored separately.
	other, created, err := s.Import(ctx, "release", "", f)
	if err != nil {
		t.Fatalf("Import release: %v", err)
	}
	if !created || other.ID == first.ID {
		t.Errorf("release import = %+v, created %v", other, created)
	}

	f.Roots = f.Roots[1:]
	third, created, err := s.Import(ctx, "master", "", f)
	if err != nil {
		t.Fatalf("third Import: %v", err)
	}
	if !created || third.Digest == first.Digest {
		t.Errorf("changed import = %+v, created %v", third, created)
	}

	snaps, err := s.Snapshots(ctx, "master")
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 2 || snaps[0].ID != third.ID {
		t.Errorf("Snapshots = %+v", snaps)
	}
	all, err := s.Snapshots(ctx, "")
	if err != nil {
		t.Fatalf("Snapshots all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all snapshots = %d, want 3", len(all))
	}
}

// --- Queries ---

func TestFindClass(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, f := loadFixture(t)

	snap, _, err := s.Import(ctx, "master", "", f)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	got, err := s.FindClass(ctx, "aix3adb.cookiesafetransport")
	if err != nil {
		t.Fatalf("FindClass: %v", err)
	}
	link := "classaix3adb_1_1cookiesafetransport.html"
	want := []Occurrence{
		{SnapshotID: snap.ID, Label: "master", Parent: "aix3adb.cookietransportrequest", Link: link},
		{SnapshotID: snap.ID, Label: "master", Parent: "SafeTransport", Link: link},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("occurrences (-want +got):\n%s", diff)
	}

	root, err := s.FindClass(ctx, "Exception")
	if err != nil {
		t.Fatalf("FindClass Exception: %v", err)
	}
	if len(root) != 1 || root[0].Parent != "" || root[0].Link != "" {
		t.Errorf("Exception = %+v", root)
	}

	if _, err := s.FindClass(ctx, "missing.Class"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLatest_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Latest(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, f := loadFixture(t)

	snap, _, err := s.Import(ctx, "master", "", f)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if err := s.Delete(ctx, snap.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, snap.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete: %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, snap.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: %v, want ErrNotFound", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 0 {
		t.Errorf("entries left = %d", count)
	}
}
