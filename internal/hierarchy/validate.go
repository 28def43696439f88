package hierarchy

import (
	"fmt"
	"sort"
	"strings"
)

// Severity ranks validation findings.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Issue is a single validation finding.
type Issue struct {
	Severity Severity
	Line     int      // source line of the offending entry, 0 if unknown
	Path     []string // names from the root down to the entry
	Msg      string
}

func (i Issue) String() string {
	if len(i.Path) == 0 {
		return fmt.Sprintf("%s: %s", i.Severity, i.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, strings.Join(i.Path, " > "), i.Msg)
}

// Options tunes Validate.
type Options struct {
	// CheckLinks flags links that differ from the page name Doxygen derives
	// from the class name.
	CheckLinks bool
}

// Report collects the findings of Validate.
type Report struct {
	Issues  []Issue
	Nodes   int // entries visited
	Classes int // distinct class names
}

// Count returns the number of issues with the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

// Err returns a *ValidationError holding every error-level issue, or nil.
func (r *Report) Err() error {
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Issues: errs}
}

// ValidationError reports a structurally broken index. Such an index is a
// defect of the generator run and must not be rendered.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "hierarchy: " + e.Issues[0].String()
	}
	return fmt.Sprintf("hierarchy: %d defects, first: %s", len(e.Issues), e.Issues[0])
}

type validator struct {
	opts    Options
	report  *Report
	visited map[*Node]bool
	onPath  map[*Node]bool
	path    []string

	// parent names per class name, and the first entry seen for each name
	parents map[string]map[string]bool
	first   map[string]*Node
}

// Validate checks that f is a well-formed forest: every entry is reached
// exactly once, names and links are present, and no class inherits from
// itself, directly or through other entries.
func Validate(f *Forest, opts Options) *Report {
	v := &validator{
		opts:    opts,
		report:  &Report{},
		visited: make(map[*Node]bool),
		onPath:  make(map[*Node]bool),
		parents: make(map[string]map[string]bool),
		first:   make(map[string]*Node),
	}

	roots := make(map[string]bool)
	for _, r := range f.Roots {
		if r == nil {
			v.add(SeverityError, nil, "nil top-level entry")
			continue
		}
		if roots[r.Name] && r.Name != "" {
			v.add(SeverityError, r, "duplicate top-level entry %q", r.Name)
		}
		roots[r.Name] = true
		v.visit(r, nil)
	}

	v.checkCycles()
	v.checkMultipleBases()
	v.report.Classes = len(v.first)
	return v.report
}

func (v *validator) add(sev Severity, n *Node, format string, args ...any) {
	issue := Issue{
		Severity: sev,
		Path:     append([]string(nil), v.path...),
		Msg:      fmt.Sprintf(format, args...),
	}
	if n != nil {
		issue.Line = n.Line
	}
	v.report.Issues = append(v.report.Issues, issue)
}

func (v *validator) visit(n, parent *Node) {
	if v.onPath[n] {
		v.add(SeverityError, n, "entry %q contains itself", n.Name)
		return
	}
	if v.visited[n] {
		v.add(SeverityError, n, "entry %q is listed under more than one parent", n.Name)
		return
	}
	v.visited[n] = true
	v.onPath[n] = true
	v.path = append(v.path, n.Name)
	defer func() {
		v.path = v.path[:len(v.path)-1]
		delete(v.onPath, n)
	}()
	v.report.Nodes++

	if n.Name == "" {
		v.add(SeverityError, n, "empty class name")
	} else {
		if _, ok := v.first[n.Name]; !ok {
			v.first[n.Name] = n
		}
		if parent != nil && parent.Name != "" {
			ps := v.parents[n.Name]
			if ps == nil {
				ps = make(map[string]bool)
				v.parents[n.Name] = ps
			}
			ps[parent.Name] = true
		}
	}

	switch {
	case n.Link != nil && *n.Link == "":
		v.add(SeverityError, n, "empty link target")
	case n.Link == nil && parent != nil:
		v.add(SeverityWarning, n, "synthetic entry below the top level")
	case n.Link != nil && v.opts.CheckLinks && n.Name != "" && !LinkMatches(n.Name, *n.Link):
		v.add(SeverityWarning, n, "link %q does not match generated page %q", *n.Link, LinkFor(n.Name))
	}

	seen := make(map[string]bool, len(n.Children))
	for _, c := range n.Children {
		if c == nil {
			v.add(SeverityError, n, "nil child entry")
			continue
		}
		if seen[c.Name] && c.Name != "" {
			v.add(SeverityError, c, "duplicate child %q", c.Name)
		}
		seen[c.Name] = true
		v.visit(c, n)
	}
}

// checkCycles looks for inheritance cycles across the merged name graph,
// which also catches cycles split over separate top-level trees.
func (v *validator) checkCycles() {
	children := make(map[string][]string)
	for child, ps := range v.parents {
		for p := range ps {
			children[p] = append(children[p], child)
		}
	}
	names := make([]string, 0, len(children))
	for name, cs := range children {
		sort.Strings(cs)
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)
	var stack []string
	var dfs func(name string)
	dfs = func(name string) {
		color[name] = grey
		stack = append(stack, name)
		for _, c := range children[name] {
			switch color[c] {
			case white:
				dfs(c)
			case grey:
				i := len(stack) - 1
				for stack[i] != c {
					i--
				}
				cycle := append(append([]string(nil), stack[i:]...), c)
				issue := Issue{
					Severity: SeverityError,
					Msg:      "inheritance cycle: " + strings.Join(cycle, " -> "),
				}
				if n := v.first[c]; n != nil {
					issue.Line = n.Line
				}
				v.report.Issues = append(v.report.Issues, issue)
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
	}
	for _, name := range names {
		if color[name] == white {
			dfs(name)
		}
	}
}

func (v *validator) checkMultipleBases() {
	names := make([]string, 0, len(v.parents))
	for name, ps := range v.parents {
		if len(ps) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		bases := sortedKeys(v.parents[name])
		issue := Issue{
			Severity: SeverityInfo,
			Path:     []string{name},
			Msg:      fmt.Sprintf("derives from %d bases: %s", len(bases), strings.Join(bases, ", ")),
		}
		if n := v.first[name]; n != nil {
			issue.Line = n.Line
		}
		v.report.Issues = append(v.report.Issues, issue)
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
