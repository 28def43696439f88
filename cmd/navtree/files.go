package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/lthms/navtree/internal/hierarchy"
)

// readIndex reads and parses the index at path. "-" reads stdin.
func readIndex(path string) ([]byte, *hierarchy.Forest, error) {
	var (
		src []byte
		err error
	)
	if path == "-" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read index: %w", err)
	}
	f, err := hierarchy.ParseBytes(src)
	if err != nil {
		return src, nil, fmt.Errorf("%s:%w", path, err)
	}
	return src, f, nil
}

// loadIndex parses the index at path and refuses it when validation finds
// a structural defect.
func loadIndex(path string, opts hierarchy.Options) (*hierarchy.Forest, error) {
	_, f, err := readIndex(path)
	if err != nil {
		return nil, err
	}
	if err := hierarchy.Validate(f, opts).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// lookupResult describes one class for lookup and the MCP tools.
type lookupResult struct {
	Name        string   `json:"name"`
	Link        string   `json:"link,omitempty"`
	URL         string   `json:"url,omitempty"`
	Synthetic   bool     `json:"synthetic"`
	Parents     []string `json:"parents"`
	Children    []string `json:"children"`
	Ancestors   []string `json:"ancestors"`
	Descendants []string `json:"descendants"`
	Occurrences int      `json:"occurrences"`
}

// errUnknownClass is wrapped by lookupClass when the name is not indexed.
var errUnknownClass = errors.New("unknown class")

func lookupClass(idx *hierarchy.Index, name, baseURL string) (*lookupResult, error) {
	c, ok := idx.Class(name)
	if !ok {
		if near := searchClasses(idx, name, 5); len(near) > 0 {
			return nil, fmt.Errorf("%w %q (did you mean %s?)", errUnknownClass, name, strings.Join(near, ", "))
		}
		return nil, fmt.Errorf("%w %q", errUnknownClass, name)
	}
	res := &lookupResult{
		Name:        c.Name,
		Link:        c.Link,
		Synthetic:   c.Synthetic,
		Parents:     nonNil(c.Parents),
		Children:    nonNil(c.Children),
		Ancestors:   nonNil(idx.Ancestors(name)),
		Descendants: nonNil(idx.Descendants(name)),
		Occurrences: c.Occurrences,
	}
	if !c.Synthetic {
		res.URL = baseURL + c.Link
	}
	return res, nil
}

func (r *lookupResult) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "name:        %s\n", r.Name)
	if r.Synthetic {
		b.WriteString("link:        (synthetic)\n")
	} else {
		fmt.Fprintf(&b, "link:        %s\n", r.URL)
	}
	fmt.Fprintf(&b, "parents:     %s\n", orNone(r.Parents))
	fmt.Fprintf(&b, "children:    %s\n", orNone(r.Children))
	fmt.Fprintf(&b, "ancestors:   %s\n", orNone(r.Ancestors))
	fmt.Fprintf(&b, "descendants: %s\n", orNone(r.Descendants))
	if r.Occurrences > 1 {
		fmt.Fprintf(&b, "listed:      %d times\n", r.Occurrences)
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// searchClasses returns up to limit class names containing query, ignoring
// case. Exact matches come first, then prefix matches, then the rest, each
// group in name order.
func searchClasses(idx *hierarchy.Index, query string, limit int) []string {
	q := strings.ToLower(query)
	type hit struct {
		name string
		rank int
	}
	var hits []hit
	for _, name := range idx.Names() {
		l := strings.ToLower(name)
		switch {
		case l == q:
			hits = append(hits, hit{name, 0})
		case strings.HasPrefix(l, q):
			hits = append(hits, hit{name, 1})
		case strings.Contains(l, q):
			hits = append(hits, hit{name, 2})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	out := []string{}
	for _, h := range hits {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, h.name)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orNone(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}
