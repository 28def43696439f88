// Package hierarchy reads, writes and checks the class hierarchy navigation
// index that Doxygen emits as hierarchy.js.
//
// The file is a JavaScript array of entries [name, link, children]. An entry
// with a null link is a synthetic grouping node for a base the generator has
// no page for (Exception, object). A class with several bases is listed
// under each of them, so the same name may occur more than once.
package hierarchy

import "errors"

// ChildForm records how an entry's children field was written.
type ChildForm uint8

const (
	ChildrenNull   ChildForm = iota // [ "n", "l", null ]
	ChildrenAbsent                  // [ "n", "l" ]
	ChildrenList                    // [ "n", "l", [ ... ] ], possibly empty
)

func (f ChildForm) String() string {
	switch f {
	case ChildrenNull:
		return "null"
	case ChildrenAbsent:
		return "absent"
	case ChildrenList:
		return "list"
	}
	return "unknown"
}

// Node is one entry of the index.
type Node struct {
	Name     string
	Link     *string // nil for synthetic nodes
	Children []*Node
	Form     ChildForm
	Line     int // 1-based source line, 0 when built in code
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Synthetic reports whether the node stands for a base without a page.
func (n *Node) Synthetic() bool {
	return n.Link == nil
}

// LinkTarget returns the link or "" for synthetic nodes.
func (n *Node) LinkTarget() string {
	if n.Link == nil {
		return ""
	}
	return *n.Link
}

// Forest is a parsed index. Var is the JavaScript variable the array is
// assigned to, empty when the input was a bare array.
type Forest struct {
	Var   string
	Roots []*Node
}

// NewNode returns a node with the given link. An empty link makes a
// synthetic node.
func NewNode(name, link string, children ...*Node) *Node {
	n := &Node{Name: name, Children: children}
	if link != "" {
		n.Link = &link
	}
	if len(children) > 0 {
		n.Form = ChildrenList
	}
	return n
}

// ErrStop can be returned from a WalkFunc to end the walk early without
// an error.
var ErrStop = errors.New("hierarchy: stop walk")

// WalkFunc is called for every node in preorder. path holds the ancestors
// of n, outermost first, and must not be retained.
type WalkFunc func(path []*Node, n *Node) error

// Walk visits every node of f depth-first. It does not guard against
// cycles; run Validate on forests that were not produced by Parse.
func Walk(f *Forest, fn WalkFunc) error {
	var path []*Node
	var visit func(n *Node) error
	visit = func(n *Node) error {
		if err := fn(path, n); err != nil {
			return err
		}
		path = append(path, n)
		for _, c := range n.Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		return nil
	}
	for _, r := range f.Roots {
		if err := visit(r); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Find returns every occurrence of name in preorder.
func (f *Forest) Find(name string) []*Node {
	var out []*Node
	Walk(f, func(_ []*Node, n *Node) error {
		if n.Name == name {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// Len returns the number of entries in f.
func (f *Forest) Len() int {
	count := 0
	Walk(f, func(_ []*Node, _ *Node) error {
		count++
		return nil
	})
	return count
}
