// Package render turns a parsed hierarchy into text, markup or data.
//
// Synthetic entries never carry a link in any format.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/lthms/navtree/internal/hierarchy"
)

// Options controls how links are shown.
type Options struct {
	Links   bool   // text: append the link target to each label
	BaseURL string // prefix for link targets in markdown, html and dot
}

// Formats lists the names accepted by Render.
var Formats = []string{"text", "markdown", "html", "json", "yaml", "dot"}

// Render writes f to w in the named format.
func Render(w io.Writer, format string, f *hierarchy.Forest, opts Options) error {
	switch strings.ToLower(format) {
	case "text", "":
		return Text(w, f, opts)
	case "markdown", "md":
		return Markdown(w, f, opts)
	case "html":
		return HTML(w, f, opts)
	case "json":
		return JSON(w, f)
	case "yaml", "yml":
		return YAML(w, f)
	case "dot":
		return Dot(w, hierarchy.NewIndex(f), opts)
	}
	return fmt.Errorf("render: unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

func href(base string, n *hierarchy.Node) string {
	if n.Link == nil {
		return ""
	}
	return base + *n.Link
}
