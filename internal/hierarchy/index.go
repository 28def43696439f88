package hierarchy

import "sort"

// Class merges every occurrence of one name in the index.
type Class struct {
	Name        string
	Link        string // empty for synthetic classes
	Synthetic   bool
	Parents     []string // sorted
	Children    []string // sorted
	Occurrences int
}

// Index is the inheritance graph recovered from a forest, keyed by class
// name. It is read-only once built.
type Index struct {
	classes map[string]*Class
	names   []string
}

// NewIndex builds the inheritance graph of f. Entries with empty names are
// skipped; run Validate to report them.
func NewIndex(f *Forest) *Index {
	idx := &Index{classes: make(map[string]*Class)}
	parents := make(map[string]map[string]bool)
	children := make(map[string]map[string]bool)

	Walk(f, func(path []*Node, n *Node) error {
		if n.Name == "" {
			return nil
		}
		c := idx.classes[n.Name]
		if c == nil {
			c = &Class{Name: n.Name, Synthetic: true}
			idx.classes[n.Name] = c
			parents[n.Name] = make(map[string]bool)
			children[n.Name] = make(map[string]bool)
		}
		c.Occurrences++
		if n.Link != nil && c.Synthetic {
			c.Link = *n.Link
			c.Synthetic = false
		}
		if len(path) > 0 {
			p := path[len(path)-1]
			if p.Name != "" {
				parents[n.Name][p.Name] = true
				// the parent was visited first, so its sets exist
				children[p.Name][n.Name] = true
			}
		}
		return nil
	})

	for name, c := range idx.classes {
		c.Parents = sortedKeys(parents[name])
		c.Children = sortedKeys(children[name])
		idx.names = append(idx.names, name)
	}
	sort.Strings(idx.names)
	return idx
}

// Len returns the number of distinct classes.
func (idx *Index) Len() int {
	return len(idx.names)
}

// Names returns every class name, sorted.
func (idx *Index) Names() []string {
	return append([]string(nil), idx.names...)
}

// Class returns the merged record for name.
func (idx *Index) Class(name string) (*Class, bool) {
	c, ok := idx.classes[name]
	return c, ok
}

// Parents returns the direct bases of name.
func (idx *Index) Parents(name string) []string {
	if c, ok := idx.classes[name]; ok {
		return c.Parents
	}
	return nil
}

// Children returns the direct subclasses of name.
func (idx *Index) Children(name string) []string {
	if c, ok := idx.classes[name]; ok {
		return c.Children
	}
	return nil
}

// Ancestors returns every transitive base of name, sorted.
func (idx *Index) Ancestors(name string) []string {
	return idx.closure(name, func(c *Class) []string { return c.Parents })
}

// Descendants returns every transitive subclass of name, sorted.
func (idx *Index) Descendants(name string) []string {
	return idx.closure(name, func(c *Class) []string { return c.Children })
}

func (idx *Index) closure(name string, next func(*Class) []string) []string {
	seen := map[string]bool{name: true}
	queue := []string{name}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		c, ok := idx.classes[cur]
		if !ok {
			continue
		}
		for _, n := range next(c) {
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	sort.Strings(out)
	return out
}

// Roots returns classes without bases, sorted.
func (idx *Index) Roots() []string {
	var out []string
	for _, name := range idx.names {
		if len(idx.classes[name].Parents) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// MultipleInheritance returns classes with more than one direct base.
func (idx *Index) MultipleInheritance() []string {
	var out []string
	for _, name := range idx.names {
		if len(idx.classes[name].Parents) > 1 {
			out = append(out, name)
		}
	}
	return out
}

// Synthetic returns the grouping names that have no documentation page.
func (idx *Index) Synthetic() []string {
	var out []string
	for _, name := range idx.names {
		if idx.classes[name].Synthetic {
			out = append(out, name)
		}
	}
	return out
}
