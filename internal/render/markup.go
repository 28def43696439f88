package render

import (
	"bufio"
	"html/template"
	"io"
	"strings"

	"github.com/lthms/navtree/internal/hierarchy"
)

// Markdown writes a nested bullet list. Real classes become links,
// synthetic entries plain text.
func Markdown(w io.Writer, f *hierarchy.Forest, opts Options) error {
	bw := bufio.NewWriter(w)
	var write func(nodes []*hierarchy.Node, depth int)
	write = func(nodes []*hierarchy.Node, depth int) {
		for _, n := range nodes {
			bw.WriteString(strings.Repeat("  ", depth))
			bw.WriteString("- ")
			if n.Synthetic() {
				bw.WriteString(markdownEscape(n.Name))
			} else {
				bw.WriteString("[" + markdownEscape(n.Name) + "](" + href(opts.BaseURL, n) + ")")
			}
			bw.WriteByte('\n')
			write(n.Children, depth+1)
		}
	}
	write(f.Roots, 0)
	return bw.Flush()
}

var markdownReplacer = strings.NewReplacer(
	`\`, `\\`,
	"[", `\[`,
	"]", `\]`,
	"*", `\*`,
	"`", "\\`",
)

func markdownEscape(s string) string {
	return markdownReplacer.Replace(s)
}

type htmlNode struct {
	Name      string
	Href      string
	Synthetic bool
	Children  []htmlNode
}

var htmlTmpl = template.Must(template.New("hierarchy").Parse(
	`{{define "list"}}<ul>
{{range .}}<li>{{if .Synthetic}}<span class="synthetic">{{.Name}}</span>{{else}}<a href="{{.Href}}">{{.Name}}</a>{{end}}{{if .Children}}
{{template "list" .Children}}{{end}}</li>
{{end}}</ul>
{{end}}{{template "list" .}}`))

// HTML writes a nested <ul>. Synthetic entries are spans, never anchors.
func HTML(w io.Writer, f *hierarchy.Forest, opts Options) error {
	return htmlTmpl.Execute(w, htmlNodes(f.Roots, opts.BaseURL))
}

func htmlNodes(nodes []*hierarchy.Node, base string) []htmlNode {
	out := make([]htmlNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, htmlNode{
			Name:      n.Name,
			Href:      href(base, n),
			Synthetic: n.Synthetic(),
			Children:  htmlNodes(n.Children, base),
		})
	}
	return out
}
