package hierarchy

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// rootIndent is the indentation of top-level entries; every nesting level
// adds two more spaces.
const rootIndent = 4

// Write serializes f in the layout Doxygen emits, so that parsing a
// generated file and writing it back reproduces it byte for byte.
func Write(w io.Writer, f *Forest) error {
	bw := bufio.NewWriter(w)
	if f.Var != "" {
		fmt.Fprintf(bw, "var %s =\n", f.Var)
	}
	bw.WriteString("[\n")
	writeEntries(bw, f.Roots, rootIndent)
	if len(f.Roots) > 0 {
		bw.WriteByte('\n')
	}
	bw.WriteByte(']')
	if f.Var != "" {
		bw.WriteByte(';')
	}
	return bw.Flush()
}

// Encode returns the serialized form of f.
func Encode(f *Forest) []byte {
	var buf bytes.Buffer
	Write(&buf, f) // bytes.Buffer writes do not fail
	return buf.Bytes()
}

func writeEntries(w *bufio.Writer, nodes []*Node, indent int) {
	for i, n := range nodes {
		if i > 0 {
			w.WriteString(",\n")
		}
		writeEntry(w, n, indent)
	}
}

func writeEntry(w *bufio.Writer, n *Node, indent int) {
	pad := strings.Repeat(" ", indent)
	w.WriteString(pad)
	w.WriteString("[ ")
	w.WriteString(Quote(n.Name))
	w.WriteString(", ")
	if n.Link == nil {
		w.WriteString("null")
	} else {
		w.WriteString(Quote(*n.Link))
	}

	switch {
	case len(n.Children) > 0:
		w.WriteString(", [\n")
		writeEntries(w, n.Children, indent+2)
		w.WriteByte('\n')
		w.WriteString(pad)
		w.WriteString("] ]")
	case n.Form == ChildrenList:
		w.WriteString(", [ ] ]")
	case n.Form == ChildrenAbsent:
		w.WriteString(" ]")
	default:
		w.WriteString(", null ]")
	}
}

// Quote returns s as a double-quoted JavaScript string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
