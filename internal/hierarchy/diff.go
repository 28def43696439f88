package hierarchy

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// LinkChange records a class whose page moved between two runs.
type LinkChange struct {
	Name string
	Old  string
	New  string
}

// ParentChange records a class whose set of direct bases changed.
type ParentChange struct {
	Name string
	Old  []string
	New  []string
}

// Changes is the class-level difference between two indexes.
type Changes struct {
	Added   []string
	Removed []string
	Links   []LinkChange
	Parents []ParentChange
}

// Empty reports whether the two indexes describe the same hierarchy.
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Links) == 0 && len(c.Parents) == 0
}

// Diff compares two indexes by class name. Sibling order is ignored.
func Diff(old, cur *Index) *Changes {
	c := &Changes{}
	for _, name := range old.names {
		if _, ok := cur.classes[name]; !ok {
			c.Removed = append(c.Removed, name)
		}
	}
	for _, name := range cur.names {
		nc := cur.classes[name]
		oc, ok := old.classes[name]
		if !ok {
			c.Added = append(c.Added, name)
			continue
		}
		if oc.Link != nc.Link {
			c.Links = append(c.Links, LinkChange{Name: name, Old: oc.Link, New: nc.Link})
		}
		if !slices.Equal(oc.Parents, nc.Parents) {
			c.Parents = append(c.Parents, ParentChange{Name: name, Old: oc.Parents, New: nc.Parents})
		}
	}
	return c
}

// WriteTo prints the changes one per line in a diff-like layout.
func (c *Changes) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, name := range c.Removed {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	for _, name := range c.Added {
		fmt.Fprintf(&b, "+ %s\n", name)
	}
	for _, l := range c.Links {
		fmt.Fprintf(&b, "~ %s link %s -> %s\n", l.Name, orNull(l.Old), orNull(l.New))
	}
	for _, p := range c.Parents {
		fmt.Fprintf(&b, "~ %s bases [%s] -> [%s]\n", p.Name, strings.Join(p.Old, ", "), strings.Join(p.New, ", "))
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
