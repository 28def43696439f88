package hierarchy

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 512

// ParseError describes malformed input. Line and Col are 1-based.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// Parse reads a whole index from r.
func Parse(r io.Reader) (*Forest, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return ParseBytes(src)
}

// ParseString is ParseBytes for string input.
func ParseString(s string) (*Forest, error) {
	return ParseBytes([]byte(s))
}

// ParseBytes parses `var NAME = [ ... ];` or a bare `[ ... ]`.
func ParseBytes(src []byte) (*Forest, error) {
	p := &parser{src: src, line: 1, col: 1}
	f := &Forest{}

	p.skipSpace()
	if p.hasWord("var") {
		p.advance(3)
		if !p.skipSpace() {
			return nil, p.errorf("expected whitespace after var")
		}
		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected variable name")
		}
		f.Var = name
		p.skipSpace()
		if err := p.expect('='); err != nil {
			return nil, err
		}
		p.skipSpace()
	}

	roots, err := p.list(0)
	if err != nil {
		return nil, err
	}
	f.Roots = roots

	p.skipSpace()
	if p.peek() == ';' {
		p.advance(1)
		p.skipSpace()
	}
	if !p.eof() {
		return nil, p.errorf("unexpected %s after index", p.describe())
	}
	return f, nil
}

type parser struct {
	src  []byte
	pos  int
	line int
	col  int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) advance(n int) {
	for i := 0; i < n && !p.eof(); i++ {
		if p.src[p.pos] == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
		p.pos++
	}
}

// skipSpace consumes whitespace and reports whether any was found.
func (p *parser) skipSpace() bool {
	start := p.pos
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.advance(1)
		default:
			return p.pos > start
		}
	}
	return p.pos > start
}

func (p *parser) hasWord(w string) bool {
	if !bytes.HasPrefix(p.src[p.pos:], []byte(w)) {
		return false
	}
	end := p.pos + len(w)
	return end >= len(p.src) || !isIdentByte(p.src[end])
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (p *parser) ident() string {
	if c := p.peek(); c >= '0' && c <= '9' {
		return ""
	}
	start := p.pos
	for !p.eof() && isIdentByte(p.src[p.pos]) {
		p.advance(1)
	}
	return string(p.src[start:p.pos])
}

func (p *parser) describe() string {
	if p.eof() {
		return "end of input"
	}
	r, _ := utf8.DecodeRune(p.src[p.pos:])
	return fmt.Sprintf("%q", r)
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Line: p.line, Col: p.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(c byte) error {
	if p.eof() || p.peek() != c {
		return p.errorf("expected %q, found %s", c, p.describe())
	}
	p.advance(1)
	return nil
}

// list parses `[ entry, entry ]`. The returned slice is non-nil even when
// the list is empty.
func (p *parser) list(depth int) ([]*Node, error) {
	if depth > maxDepth {
		return nil, p.errorf("nesting deeper than %d levels", maxDepth)
	}
	if err := p.expect('['); err != nil {
		return nil, err
	}
	nodes := []*Node{}
	p.skipSpace()
	if p.peek() == ']' {
		p.advance(1)
		return nodes, nil
	}
	for {
		n, err := p.entry(depth)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.advance(1)
			p.skipSpace()
			if p.peek() == ']' {
				return nil, p.errorf("trailing comma in list")
			}
		case ']':
			p.advance(1)
			return nodes, nil
		default:
			return nil, p.errorf("expected ',' or ']', found %s", p.describe())
		}
	}
}

func (p *parser) entry(depth int) (*Node, error) {
	if p.peek() != '[' {
		return nil, p.errorf("expected entry, found %s", p.describe())
	}
	n := &Node{Line: p.line}
	p.advance(1)
	p.skipSpace()

	if p.peek() != '"' {
		return nil, p.errorf("entry name must be a string, found %s", p.describe())
	}
	name, err := p.str()
	if err != nil {
		return nil, err
	}
	n.Name = name

	p.skipSpace()
	if p.peek() == ']' {
		return nil, p.errorf("entry %q has no link field", name)
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	p.skipSpace()

	switch {
	case p.hasWord("null"):
		p.advance(4)
	case p.peek() == '"':
		link, err := p.str()
		if err != nil {
			return nil, err
		}
		n.Link = &link
	default:
		return nil, p.errorf("link of %q must be a string or null, found %s", name, p.describe())
	}

	p.skipSpace()
	if p.peek() == ']' {
		p.advance(1)
		n.Form = ChildrenAbsent
		return n, nil
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	p.skipSpace()

	switch {
	case p.hasWord("null"):
		p.advance(4)
		n.Form = ChildrenNull
	case p.peek() == '[':
		children, err := p.list(depth + 1)
		if err != nil {
			return nil, err
		}
		n.Children = children
		n.Form = ChildrenList
	default:
		return nil, p.errorf("children of %q must be a list or null, found %s", name, p.describe())
	}

	p.skipSpace()
	if p.peek() == ',' {
		return nil, p.errorf("entry %q has more than three fields", name)
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return n, nil
}

// str parses a double-quoted string with JSON escapes.
func (p *parser) str() (string, error) {
	startLine, startCol := p.line, p.col
	p.advance(1)
	var b strings.Builder
	for {
		if p.eof() {
			return "", &ParseError{Line: startLine, Col: startCol, Msg: "unterminated string"}
		}
		c := p.src[p.pos]
		switch {
		case c == '"':
			p.advance(1)
			return b.String(), nil
		case c == '\\':
			p.advance(1)
			if err := p.escape(&b); err != nil {
				return "", err
			}
		case c < 0x20:
			return "", p.errorf("control character %#02x in string", c)
		default:
			b.WriteByte(c)
			p.advance(1)
		}
	}
}

func (p *parser) escape(b *strings.Builder) error {
	if p.eof() {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.advance(1)
	switch c {
	case '"', '\\', '/':
		b.WriteByte(c)
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'u':
		r, err := p.hex4()
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) {
			if !bytes.HasPrefix(p.src[p.pos:], []byte(`\u`)) {
				return p.errorf("unpaired surrogate \\u%04x", r)
			}
			p.advance(2)
			r2, err := p.hex4()
			if err != nil {
				return err
			}
			r = utf16.DecodeRune(r, r2)
			if r == utf8.RuneError {
				return p.errorf("invalid surrogate pair")
			}
		}
		b.WriteRune(r)
	default:
		return p.errorf("unknown escape \\%c", c)
	}
	return nil
}

func (p *parser) hex4() (rune, error) {
	if p.pos+4 > len(p.src) {
		return 0, p.errorf("short \\u escape")
	}
	var r rune
	for i := 0; i < 4; i++ {
		c := p.src[p.pos+i]
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		default:
			return 0, p.errorf("invalid hex digit %q in \\u escape", c)
		}
		r = r<<4 | rune(v)
	}
	p.advance(4)
	return r, nil
}
