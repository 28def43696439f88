package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/lthms/navtree/internal/hierarchy"
	"golang.org/x/term"
)

// BrowseCmd opens a full-screen tree of one index.
type BrowseCmd struct {
	File    string `arg:"" name:"file" help:"Hierarchy index."`
	BaseURL string `name:"base-url" help:"Prefix for page links."`
	Expand  bool   `help:"Start with every entry expanded."`
}

// Run shows the tree and prints the link of the entry chosen with enter.
func (cmd *BrowseCmd) Run(ctx context.Context, env *Env) error {
	f, err := loadIndex(cmd.File, hierarchy.Options{})
	if err != nil {
		return err
	}
	base := cmd.BaseURL
	if base == "" {
		base = env.Config.Render.BaseURL
	}

	level := slog.LevelInfo
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		level = slog.LevelDebug
	}
	logs, restore := captureLogs(level)
	defer restore()

	m := newBrowseModel(f, base, logs)
	if cmd.Expand {
		m.setAll(true)
	}
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		m.width, m.height = w, h
	}
	slog.Debug("browse started", "file", cmd.File, "roots", len(f.Roots))

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	if fm, ok := final.(browseModel); ok && fm.chosen != "" {
		fmt.Fprintln(env.Stdout, fm.chosen)
	}
	return nil
}

type browseRow struct {
	node  *hierarchy.Node
	depth int
}

// browseModel is the Bubble Tea model for the tree view.
type browseModel struct {
	forest   *hierarchy.Forest
	baseURL  string
	expanded map[*hierarchy.Node]bool
	rows     []browseRow
	cursor   int
	offset   int
	width    int
	height   int

	filter    textinput.Model
	filtering bool

	logs *logRing

	// Result
	chosen string
}

// Styles
var (
	browseTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#89b4fa"))

	browseCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#89b4fa"))

	browseSyntheticStyle = lipgloss.NewStyle().
				Italic(true).
				Faint(true)

	browseMatchStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f9e2af"))

	browseDimStyle = lipgloss.NewStyle().
			Faint(true)
)

func newBrowseModel(f *hierarchy.Forest, baseURL string, logs *logRing) browseModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter classes"
	ti.CharLimit = 200

	m := browseModel{
		forest:   f,
		baseURL:  baseURL,
		expanded: make(map[*hierarchy.Node]bool),
		width:    80,
		height:   24,
		filter:   ti,
		logs:     logs,
	}
	m.rebuild()
	return m
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll()
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "esc":
			if m.query() != "" {
				m.filter.Reset()
				m.rebuild()
				return m, nil
			}
			return m, tea.Quit

		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "pgup":
			m.move(-m.visibleRows())
		case "pgdown":
			m.move(m.visibleRows())
		case "home", "g":
			m.move(-len(m.rows))
		case "end", "G":
			m.move(len(m.rows))

		case "right", "l":
			if n := m.current(); n != nil && len(n.Children) > 0 {
				if m.expanded[n] {
					m.move(1)
				} else {
					m.expanded[n] = true
					m.rebuild()
				}
			}
		case "left", "h":
			m.collapseOrParent()
		case " ":
			if n := m.current(); n != nil && len(n.Children) > 0 {
				m.expanded[n] = !m.expanded[n]
				m.rebuild()
			}
		case "e":
			m.setAll(true)
		case "c":
			m.setAll(false)

		case "enter":
			if n := m.current(); n != nil {
				m.chosen = m.target(n)
				return m, tea.Quit
			}

		case "/":
			m.filtering = true
			cmd := m.filter.Focus()
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

func (m browseModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.filter.Reset()
		m.rebuild()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.rebuild()
	return m, cmd
}

func (m browseModel) query() string {
	return strings.ToLower(strings.TrimSpace(m.filter.Value()))
}

func (m browseModel) current() *hierarchy.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].node
}

func (m browseModel) target(n *hierarchy.Node) string {
	if n.Link == nil {
		return n.Name
	}
	return m.baseURL + *n.Link
}

func (m *browseModel) move(delta int) {
	m.cursor = max(0, min(len(m.rows)-1, m.cursor+delta))
	m.scroll()
}

func (m *browseModel) collapseOrParent() {
	n := m.current()
	if n == nil {
		return
	}
	if m.expanded[n] && m.query() == "" {
		m.expanded[n] = false
		m.rebuild()
		return
	}
	depth := m.rows[m.cursor].depth
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].depth < depth {
			m.cursor = i
			m.scroll()
			return
		}
	}
}

func (m *browseModel) setAll(open bool) {
	hierarchy.Walk(m.forest, func(_ []*hierarchy.Node, n *hierarchy.Node) error {
		if len(n.Children) > 0 {
			m.expanded[n] = open
		}
		return nil
	})
	m.rebuild()
}

// rebuild recomputes the visible rows and keeps the cursor on the same
// entry when it is still shown.
func (m *browseModel) rebuild() {
	cur := m.current()

	if q := m.query(); q != "" {
		m.rows = matchRows(m.forest.Roots, 0, q)
	} else {
		m.rows = m.rows[:0]
		m.appendOpen(m.forest.Roots, 0)
	}

	m.cursor = max(0, min(len(m.rows)-1, m.cursor))
	for i, r := range m.rows {
		if r.node == cur {
			m.cursor = i
			break
		}
	}
	m.scroll()
}

func (m *browseModel) appendOpen(nodes []*hierarchy.Node, depth int) {
	for _, n := range nodes {
		m.rows = append(m.rows, browseRow{node: n, depth: depth})
		if m.expanded[n] {
			m.appendOpen(n.Children, depth+1)
		}
	}
}

// matchRows returns entries whose name contains q, with every entry on
// the way down to them.
func matchRows(nodes []*hierarchy.Node, depth int, q string) []browseRow {
	var rows []browseRow
	for _, n := range nodes {
		below := matchRows(n.Children, depth+1, q)
		if strings.Contains(strings.ToLower(n.Name), q) || len(below) > 0 {
			rows = append(rows, browseRow{node: n, depth: depth})
			rows = append(rows, below...)
		}
	}
	return rows
}

func (m browseModel) visibleRows() int {
	// title (2) + filter (1) + footer (2)
	return max(1, m.height-5)
}

func (m *browseModel) scroll() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	m.offset = max(0, min(m.offset, len(m.rows)-visible))
}

func (m browseModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("navtree  %d entries", m.forest.Len())
	b.WriteString(browseTitleStyle.Render(title))
	b.WriteString("\n\n")

	q := m.query()
	end := min(len(m.rows), m.offset+m.visibleRows())
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.cursor, q))
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(browseDimStyle.Render("  no matching classes"))
		b.WriteString("\n")
	}

	if m.filtering || q != "" {
		b.WriteString(m.filter.View())
	}
	b.WriteString("\n")

	if n := m.current(); n != nil {
		status := "(synthetic)"
		if n.Link != nil {
			status = m.target(n)
		}
		b.WriteString(browseDimStyle.Render(status))
	}
	b.WriteString("\n")
	if last := m.lastLog(); last != "" {
		b.WriteString(browseDimStyle.Render(last))
	} else {
		b.WriteString(browseDimStyle.Render("↑↓ move  ←→ fold  / filter  enter select  q quit"))
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, m.width, "…")
	}
	return strings.Join(lines, "\n")
}

func (m browseModel) lastLog() string {
	if m.logs == nil {
		return ""
	}
	return m.logs.Last()
}

func (m browseModel) renderRow(r browseRow, selected bool, q string) string {
	n := r.node
	marker := "  "
	if len(n.Children) > 0 {
		if m.expanded[n] || q != "" {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}

	name := n.Name
	switch {
	case q != "" && strings.Contains(strings.ToLower(name), q):
		name = browseMatchStyle.Render(name)
	case n.Synthetic():
		name = browseSyntheticStyle.Render(name)
	}

	cursor := "  "
	if selected {
		cursor = browseCursorStyle.Render("> ")
	}
	return cursor + strings.Repeat("  ", r.depth) + marker + name
}
