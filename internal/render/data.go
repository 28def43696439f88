package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lthms/navtree/internal/hierarchy"
	"gopkg.in/yaml.v3"
)

// Entry is the object form of a node used by the JSON and YAML exports.
type Entry struct {
	Name     string  `json:"name" yaml:"name"`
	Link     *string `json:"link" yaml:"link"`
	Children []Entry `json:"children,omitempty" yaml:"children,omitempty"`
}

// Entries converts nodes to their object form.
func Entries(nodes []*hierarchy.Node) []Entry {
	out := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		e := Entry{Name: n.Name, Link: n.Link}
		if len(n.Children) > 0 {
			e.Children = Entries(n.Children)
		}
		out = append(out, e)
	}
	return out
}

// JSON writes the forest as an indented array of entries.
func JSON(w io.Writer, f *hierarchy.Forest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Entries(f.Roots)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// YAML writes the forest as a sequence of entries.
func YAML(w io.Writer, f *hierarchy.Forest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Entries(f.Roots)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// Dot writes the inheritance graph for Graphviz, base classes pointing at
// their subclasses. Synthetic classes are dashed and carry no URL.
func Dot(w io.Writer, idx *hierarchy.Index, opts Options) error {
	var b strings.Builder
	b.WriteString("digraph hierarchy {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, fontsize=10];\n")
	for _, name := range idx.Names() {
		c, _ := idx.Class(name)
		if c.Synthetic {
			fmt.Fprintf(&b, "  %s [style=dashed];\n", dotQuote(name))
			continue
		}
		fmt.Fprintf(&b, "  %s [URL=%s];\n", dotQuote(name), dotQuote(opts.BaseURL+c.Link))
	}
	for _, name := range idx.Names() {
		for _, child := range idx.Children(name) {
			fmt.Fprintf(&b, "  %s -> %s;\n", dotQuote(name), dotQuote(child))
		}
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func dotQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
