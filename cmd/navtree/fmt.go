package main

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/google/renameio/v2"
	"github.com/lthms/navtree/internal/hierarchy"
)

// FmtCmd rewrites indexes in the layout Doxygen emits.
type FmtCmd struct {
	Files []string `arg:"" name:"file" help:"Hierarchy indexes to format (- for stdin)."`
	Write bool     `short:"w" help:"Replace files whose layout is not canonical."`
	List  bool     `short:"l" help:"List files whose layout is not canonical and fail if there are any."`
}

// Run formats every file. Without --write or --list the canonical text
// goes to stdout.
func (cmd *FmtCmd) Run(env *Env) error {
	var changed int
	for _, path := range cmd.Files {
		src, f, err := readIndex(path)
		if err != nil {
			return err
		}
		out := hierarchy.Encode(f)
		canonical := bytes.Equal(src, out)
		if !canonical {
			changed++
		}

		switch {
		case cmd.List || cmd.Write:
			if canonical {
				continue
			}
			if cmd.List {
				fmt.Fprintln(env.Stdout, path)
			}
			if cmd.Write && path != "-" {
				if err := writeFileAtomic(path, out); err != nil {
					return err
				}
				slog.Debug("formatted", "file", path, "bytes", len(out))
			}
		default:
			if _, err := env.Stdout.Write(out); err != nil {
				return err
			}
		}
	}

	if cmd.List && !cmd.Write && changed > 0 {
		return exitCode(1)
	}
	return nil
}

// writeFileAtomic replaces path with data, keeping its permissions.
func writeFileAtomic(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			slog.Debug("cleanup pending file", "file", path, "error", err)
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
