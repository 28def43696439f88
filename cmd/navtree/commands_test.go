package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/go-cmp/cmp"
	"github.com/lithammer/dedent"
	"github.com/lthms/navtree/internal/hierarchy"
	"github.com/lthms/navtree/internal/render"
)

var fixturePath = filepath.Join("..", "..", "internal", "hierarchy", "testdata", "hierarchy.js")

func testEnv(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	cfg := defaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "state", "navtree.db")
	var out bytes.Buffer
	return &Env{Config: cfg, Stdout: &out, Stderr: io.Discard}, &out
}

func writeIndex(t *testing.T, src string) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "hierarchy.js", src)
}

func text(s string) string {
	return strings.TrimPrefix(dedent.Dedent(s), "\n")
}

func wantExit(t *testing.T, err error, code int) {
	t.Helper()
	var ec exitCode
	if !errors.As(err, &ec) || int(ec) != code {
		t.Fatalf("err = %v, want exit status %d", err, code)
	}
}

const duplicateRoots = `var hierarchy =
[
    [ "A", "classA.html", null ],
    [ "A", "classA.html", null ]
];`

// --- check ---

func TestCheck_FixtureIsClean(t *testing.T) {
	env, out := testEnv(t)
	cmd := &CheckCmd{Files: []string{fixturePath}, Links: true, Severity: "warning"}

	if err := cmd.Run(context.Background(), env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCheck_InfoLines(t *testing.T) {
	env, out := testEnv(t)
	cmd := &CheckCmd{Files: []string{fixturePath}, Severity: "info"}

	if err := cmd.Run(context.Background(), env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	want := fixturePath + ":24: info: aix3adb.cookiesafetransport: derives from 2 bases: SafeTransport, aix3adb.cookietransportrequest"
	if lines[0] != want {
		t.Errorf("first line = %q, want %q", lines[0], want)
	}
}

func TestCheck_StructuralError(t *testing.T) {
	env, out := testEnv(t)
	path := writeIndex(t, duplicateRoots)

	err := (&CheckCmd{Files: []string{path}, Severity: "warning"}).Run(context.Background(), env)
	wantExit(t, err, 1)

	want := path + ":4: error: duplicate top-level entry \"A\"\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestCheck_ParseError(t *testing.T) {
	env, out := testEnv(t)
	path := writeIndex(t, "var hierarchy =\n[\n    [ \"A\", \"classA.html\", null ],\n];")

	err := (&CheckCmd{Files: []string{path}, Severity: "warning"}).Run(context.Background(), env)
	wantExit(t, err, 1)

	got := out.String()
	if !strings.HasPrefix(got, path+":") || !strings.Contains(got, ": error: trailing comma in list") {
		t.Errorf("output = %q", got)
	}
}

func TestCheckFiles_KeepsOrder(t *testing.T) {
	bad := writeIndex(t, duplicateRoots)
	missing := filepath.Join(t.TempDir(), "nope.js")
	paths := []string{fixturePath, bad, fixturePath, missing}

	results, err := checkFiles(context.Background(), paths, hierarchy.Options{})
	if err != nil {
		t.Fatalf("checkFiles: %v", err)
	}
	var failed []bool
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("results[%d].Path = %q, want %q", i, r.Path, paths[i])
		}
		failed = append(failed, r.Failed())
	}
	if diff := cmp.Diff([]bool{false, true, false, true}, failed); diff != "" {
		t.Errorf("failed (-want +got):\n%s", diff)
	}
	if !errors.Is(results[3].Err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", results[3].Err)
	}
}

// --- fmt ---

const oneLine = `var hierarchy = [ [ "A", "classA.html", [ [ "B", "classB.html", null ] ] ] ];`

var canonical = text(`
	var hierarchy =
	[
	    [ "A", "classA.html", [
	      [ "B", "classB.html", null ]
	    ] ]
	];`)

func TestFmt_Stdout(t *testing.T) {
	env, out := testEnv(t)
	path := writeIndex(t, oneLine)

	if err := (&FmtCmd{Files: []string{path}}).Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(canonical, out.String()); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}

func TestFmt_ListAndWrite(t *testing.T) {
	env, out := testEnv(t)
	path := writeIndex(t, oneLine)

	err := (&FmtCmd{Files: []string{path, fixturePath}, List: true}).Run(env)
	wantExit(t, err, 1)
	if out.String() != path+"\n" {
		t.Errorf("list = %q, want only %q", out.String(), path)
	}

	out.Reset()
	if err := (&FmtCmd{Files: []string{path}, Write: true}).Run(env); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("write printed %q", out.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != canonical {
		t.Errorf("rewritten file:\n%s", data)
	}

	if err := (&FmtCmd{Files: []string{path}, List: true}).Run(env); err != nil {
		t.Errorf("formatted file still listed: %v", err)
	}
}

func TestFmt_FixtureUnchanged(t *testing.T) {
	env, out := testEnv(t)
	src, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	if err := (&FmtCmd{Files: []string{fixturePath}}).Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(src, out.Bytes()) {
		t.Error("formatting the generated index changed it")
	}
}

// --- show ---

func TestShow_Markdown(t *testing.T) {
	env, out := testEnv(t)
	cmd := &ShowCmd{File: fixturePath, Format: "markdown", BaseURL: "https://x/"}

	if err := cmd.Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, s := range []string{
		"- [aix3adb.aix3adb](https://x/classaix3adb_1_1aix3adb.html)\n",
		"- Exception\n",
		"  - [cesubmit.ProxyError](https://x/classcesubmit_1_1ProxyError.html)\n",
	} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("missing %q", s)
		}
	}
}

func TestShow_ConfigFormat(t *testing.T) {
	env, out := testEnv(t)
	env.Config.Render.Format = "json"

	if err := (&ShowCmd{File: fixturePath}).Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var entries []render.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(entries) != 29 {
		t.Errorf("roots = %d, want 29", len(entries))
	}
}

func TestShow_TruncatesToWidth(t *testing.T) {
	env, out := testEnv(t)
	env.Width = 20

	if err := (&ShowCmd{File: fixturePath, Links: true}).Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var lines []string
	for _, line := range strings.Split(out.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) != 56 {
		t.Errorf("lines = %d, want 56", len(lines))
	}
	for _, line := range lines {
		if w := ansi.StringWidth(line); w > 20 {
			t.Errorf("line %q is %d cells wide", line, w)
		}
	}
}

func TestShow_RefusesBrokenIndex(t *testing.T) {
	env, out := testEnv(t)
	path := writeIndex(t, duplicateRoots)

	err := (&ShowCmd{File: path}).Run(env)
	var verr *hierarchy.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *hierarchy.ValidationError", err)
	}
	if out.Len() != 0 {
		t.Errorf("broken index was rendered:\n%s", out)
	}
}

// --- lookup and diff ---

func TestLookup_JSON(t *testing.T) {
	env, out := testEnv(t)
	cmd := &LookupCmd{File: fixturePath, Class: "aix3adb.cookiesafetransport", JSON: true}

	if err := cmd.Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var got lookupResult
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := lookupResult{
		Name:        "aix3adb.cookiesafetransport",
		Link:        "classaix3adb_1_1cookiesafetransport.html",
		URL:         "classaix3adb_1_1cookiesafetransport.html",
		Parents:     []string{"SafeTransport", "aix3adb.cookietransportrequest"},
		Children:    []string{},
		Ancestors:   []string{"SafeTransport", "aix3adb.cookietransportrequest"},
		Descendants: []string{},
		Occurrences: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lookup (-want +got):\n%s", diff)
	}
}

func TestLookup_Synthetic(t *testing.T) {
	env, out := testEnv(t)

	if err := (&LookupCmd{File: fixturePath, Class: "Exception"}).Run(env); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := text(`
		name:        Exception
		link:        (synthetic)
		parents:     -
		children:    TimedCall.TimeoutExpired, aix3adb.Aix3adbException, cesubmit.ProxyError, lheanalyzer.LHEFileFormatError
		ancestors:   -
		descendants: TimedCall.TimeoutExpired, aix3adb.Aix3adbException, cesubmit.ProxyError, lheanalyzer.LHEFileFormatError
	`)
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("lookup (-want +got):\n%s", diff)
	}
}

func TestLookup_Unknown(t *testing.T) {
	env, _ := testEnv(t)

	err := (&LookupCmd{File: fixturePath, Class: "Cookie"}).Run(env)
	if !errors.Is(err, errUnknownClass) {
		t.Fatalf("err = %v, want errUnknownClass", err)
	}
	if !strings.Contains(err.Error(), "did you mean aix3adb.cookiesafetransport") {
		t.Errorf("no suggestion in %q", err)
	}
}

func TestSearchClasses_Ranking(t *testing.T) {
	_, f, err := readIndex(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	idx := hierarchy.NewIndex(f)

	got := searchClasses(idx, "transport", 0)
	want := []string{
		"Transport",
		"SafeTransport",
		"aix3adb.cookiesafetransport",
		"aix3adb.cookietransport",
		"aix3adb.cookietransportrequest",
		"aix3adb_deprecated.cookiesafetransport",
		"aix3adb_deprecated.cookietransport",
		"aix3adb_deprecated.cookietransportrequest",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("search (-want +got):\n%s", diff)
	}

	if got := searchClasses(idx, "lheanalyzer.", 2); len(got) != 2 {
		t.Errorf("limit ignored: %v", got)
	}
	if got := searchClasses(idx, "zzz", 10); got == nil || len(got) != 0 {
		t.Errorf("no match = %#v, want empty slice", got)
	}
}

func TestDiff_ExitStatus(t *testing.T) {
	env, out := testEnv(t)
	old := writeIndex(t, text(`
		var hierarchy =
		[
		    [ "A", "classA.html", [
		      [ "B", "classB.html", null ]
		    ] ],
		    [ "C", "classC.html", null ]
		];`))
	cur := writeIndex(t, text(`
		var hierarchy =
		[
		    [ "A", "classA.html", null ],
		    [ "C", "classC.html", [
		      [ "B", "classB.html", null ]
		    ] ],
		    [ "D", "classD.html", null ]
		];`))

	err := (&DiffCmd{Old: old, New: cur}).Run(env)
	wantExit(t, err, 1)
	if want := "+ D\n~ B bases [A] -> [C]\n"; out.String() != want {
		t.Errorf("diff = %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := (&DiffCmd{Old: fixturePath, New: fixturePath}).Run(env); err != nil {
		t.Errorf("identical files: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("identical files printed %q", out.String())
	}
}
