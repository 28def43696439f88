package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/lthms/navtree/internal/hierarchy"
	"github.com/lthms/navtree/internal/render"
)

// ShowCmd renders one index.
type ShowCmd struct {
	File    string `arg:"" name:"file" help:"Hierarchy index (- for stdin)."`
	Format  string `short:"f" help:"Output format: text, markdown, html, json, yaml or dot. Defaults to render.format from the config."`
	Links   bool   `help:"Print page links next to class names in text output."`
	BaseURL string `name:"base-url" help:"Prefix for page links."`
}

// Run renders the index to stdout.
func (cmd *ShowCmd) Run(env *Env) error {
	f, err := loadIndex(cmd.File, hierarchy.Options{})
	if err != nil {
		return err
	}

	format := cmd.Format
	if format == "" {
		format = env.Config.Render.Format
	}
	opts := render.Options{
		Links:   cmd.Links || env.Config.Render.Links,
		BaseURL: cmd.BaseURL,
	}
	if opts.BaseURL == "" {
		opts.BaseURL = env.Config.Render.BaseURL
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, format, f, opts); err != nil {
		return err
	}
	if format == "text" && env.Width > 0 {
		return writeTruncated(env.Stdout, buf.String(), env.Width)
	}
	_, err = env.Stdout.Write(buf.Bytes())
	return err
}

// writeTruncated writes s cutting every line to width cells.
func writeTruncated(w io.Writer, s string, width int) error {
	lines := strings.SplitAfter(s, "\n")
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		if _, err := fmt.Fprint(w, ansi.Truncate(body, width, "…")); err != nil {
			return err
		}
		if len(body) != len(line) {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
