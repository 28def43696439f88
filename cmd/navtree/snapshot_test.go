package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/lthms/navtree/internal/store"
)

func TestImport_HistoryAndWhere(t *testing.T) {
	ctx := context.Background()
	env, out := testEnv(t)

	if err := (&ImportCmd{File: fixturePath, Label: "master"}).Run(ctx, env); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := out.String(); got != "snapshot 1 (master): 56 entries\n" {
		t.Errorf("import output = %q", got)
	}

	out.Reset()
	if err := (&ImportCmd{File: fixturePath, Label: "master"}).Run(ctx, env); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if got := out.String(); got != "unchanged: snapshot 1 (master)\n" {
		t.Errorf("second import output = %q", got)
	}

	out.Reset()
	if err := (&HistoryCmd{JSON: true}).Run(ctx, env); err != nil {
		t.Fatalf("history: %v", err)
	}
	var snaps []store.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snaps); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Entries != 56 || !strings.HasSuffix(snaps[0].Source, "hierarchy.js") {
		t.Errorf("history = %+v", snaps)
	}

	out.Reset()
	if err := (&HistoryCmd{}).Run(ctx, env); err != nil {
		t.Fatalf("history table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID") || !strings.HasPrefix(lines[1], "1 ") {
		t.Errorf("history table:\n%s", out)
	}

	out.Reset()
	if err := (&WhereCmd{Class: "aix3adb_deprecated.cookietransport"}).Run(ctx, env); err != nil {
		t.Fatalf("where: %v", err)
	}
	want := "1\tmaster\tunder aix3adb_deprecated.cookietransportrequest\tclassaix3adb__deprecated_1_1cookietransport.html\n" +
		"1\tmaster\tunder Transport\tclassaix3adb__deprecated_1_1cookietransport.html\n"
	if out.String() != want {
		t.Errorf("where = %q, want %q", out.String(), want)
	}
}

func TestImport_RefusesBrokenIndex(t *testing.T) {
	env, _ := testEnv(t)
	path := writeIndex(t, duplicateRoots)

	if err := (&ImportCmd{File: path, Label: "x"}).Run(context.Background(), env); err == nil {
		t.Fatal("broken index was imported")
	}
}

func TestDiffSnapshot_ByLabelAndID(t *testing.T) {
	ctx := context.Background()
	env, out := testEnv(t)

	old := writeIndex(t, `[ [ "A", "classA.html", null ] ]`)
	cur := writeIndex(t, `[ [ "A", "classA.html", null ], [ "B", "classB.html", null ] ]`)
	if err := (&ImportCmd{File: old, Label: "v1"}).Run(ctx, env); err != nil {
		t.Fatal(err)
	}
	if err := (&ImportCmd{File: cur, Label: "v2"}).Run(ctx, env); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	err := (&DiffSnapshotCmd{Old: "1", New: "v2"}).Run(ctx, env)
	wantExit(t, err, 1)
	if out.String() != "+ B\n" {
		t.Errorf("diff = %q", out.String())
	}

	out.Reset()
	if err := (&DiffSnapshotCmd{Old: "v1", New: "v1"}).Run(ctx, env); err != nil {
		t.Errorf("same snapshot: %v", err)
	}

	err = (&DiffSnapshotCmd{Old: "v1", New: "v3"}).Run(ctx, env)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown label: %v, want store.ErrNotFound", err)
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	env, _ := testEnv(t)

	if err := (&ImportCmd{File: fixturePath, Label: "master"}).Run(ctx, env); err != nil {
		t.Fatal(err)
	}
	if err := (&ForgetCmd{ID: 1}).Run(ctx, env); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if err := (&ForgetCmd{ID: 1}).Run(ctx, env); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second forget: %v, want store.ErrNotFound", err)
	}
	if err := (&WhereCmd{Class: "Exception"}).Run(ctx, env); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("where after forget: %v, want store.ErrNotFound", err)
	}
}
