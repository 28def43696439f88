package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lthms/navtree/internal/hierarchy"
	"golang.org/x/sync/errgroup"
)

const concurrencyLimit = 8

// CheckCmd parses and validates hierarchy indexes.
type CheckCmd struct {
	Files    []string `arg:"" name:"file" help:"Hierarchy indexes to check (- for stdin)."`
	Links    bool     `help:"Also check links against the page names Doxygen derives."`
	Severity string   `default:"warning" enum:"info,warning,error" help:"Lowest severity to print (${enum})."`
}

// checkResult is the outcome for one file.
type checkResult struct {
	Path   string
	Forest *hierarchy.Forest // the forest Report describes
	Report *hierarchy.Report
	Err    error // read or parse failure
}

// Failed reports whether the file cannot be used.
func (r checkResult) Failed() bool {
	return r.Err != nil || r.Report.Err() != nil
}

// Run prints one line per finding and fails when any file is broken.
func (cmd *CheckCmd) Run(ctx context.Context, env *Env) error {
	opts := hierarchy.Options{CheckLinks: cmd.Links || env.Config.Check.Links}
	results, err := checkFiles(ctx, cmd.Files, opts)
	if err != nil {
		return err
	}

	minSev := parseSeverity(cmd.Severity)
	failed := 0
	for _, r := range results {
		writeResult(env.Stdout, r, minSev)
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		slog.Debug("check failed", "files", len(results), "broken", failed)
		return exitCode(1)
	}
	return nil
}

// checkFiles parses and validates paths concurrently. Results come back
// in the order of paths.
func checkFiles(ctx context.Context, paths []string, opts hierarchy.Options) ([]checkResult, error) {
	results := make([]checkResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyLimit)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = checkFile(path, opts)
			slog.Debug("checked", "file", path, "issues", issueCount(results[i]))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkFile(path string, opts hierarchy.Options) checkResult {
	_, f, err := readIndex(path)
	if err != nil {
		return checkResult{Path: path, Err: err}
	}
	return checkResult{Path: path, Forest: f, Report: hierarchy.Validate(f, opts)}
}

func issueCount(r checkResult) int {
	if r.Report == nil {
		return 0
	}
	return len(r.Report.Issues)
}

// writeResult prints findings as file:line: severity: message.
func writeResult(w io.Writer, r checkResult, minSev hierarchy.Severity) {
	if r.Err != nil {
		var pe *hierarchy.ParseError
		if errors.As(r.Err, &pe) {
			fmt.Fprintf(w, "%s:%d:%d: error: %s\n", r.Path, pe.Line, pe.Col, pe.Msg)
			return
		}
		fmt.Fprintf(w, "%s: error: %v\n", r.Path, r.Err)
		return
	}
	for _, is := range r.Report.Issues {
		if is.Severity < minSev {
			continue
		}
		if is.Line > 0 {
			fmt.Fprintf(w, "%s:%d: %s\n", r.Path, is.Line, is)
		} else {
			fmt.Fprintf(w, "%s: %s\n", r.Path, is)
		}
	}
}

func parseSeverity(s string) hierarchy.Severity {
	switch s {
	case "info":
		return hierarchy.SeverityInfo
	case "error":
		return hierarchy.SeverityError
	}
	return hierarchy.SeverityWarning
}
