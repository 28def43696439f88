package render

import (
	"fmt"
	"io"

	"github.com/ddddddO/gtree"
	"github.com/lthms/navtree/internal/hierarchy"
)

// Text draws every top-level entry as its own tree.
func Text(w io.Writer, f *hierarchy.Forest, opts Options) error {
	for _, r := range f.Roots {
		root := gtree.NewRoot(label(r, opts))
		addChildren(root, r, opts)
		if err := gtree.OutputFromRoot(w, root); err != nil {
			return fmt.Errorf("render tree %q: %w", r.Name, err)
		}
	}
	return nil
}

func addChildren(parent *gtree.Node, n *hierarchy.Node, opts Options) {
	for _, c := range n.Children {
		addChildren(parent.Add(label(c, opts)), c, opts)
	}
}

// Label is the text shown for n in tree views.
func Label(n *hierarchy.Node, withLink bool) string {
	if withLink && n.Link != nil {
		return fmt.Sprintf("%s (%s)", n.Name, *n.Link)
	}
	return n.Name
}

func label(n *hierarchy.Node, opts Options) string {
	return Label(n, opts.Links)
}
