package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rpggio/storytree/internal/domain/tree"
)

// PollInterval is how often the panel asks the supplier to refresh stale data.
const PollInterval = time.Minute

// Supplier is the tree source rendered by the panel.
type Supplier interface {
	Children(ctx context.Context, node *tree.Node) ([]tree.Node, error)
	Refresh(ctx context.Context) error
	Poll(ctx context.Context) (bool, error)
	Fetching() bool
}

// StatusMsg shows text in the status bar.
type StatusMsg struct {
	Text    string
	Warning bool
}

// RootChangedMsg reports that the supplier produced a new snapshot.
type RootChangedMsg struct {
	Snapshot *tree.Snapshot
}

type rootLoadedMsg struct {
	nodes []tree.Node
	err   error
}

type refreshDoneMsg struct {
	err error
}

type pollTickMsg time.Time

type pollDoneMsg struct {
	refreshed bool
	err       error
}

// row is one visible line of the flattened tree.
type row struct {
	node     tree.Node
	depth    int
	expanded bool
}

// Model is the bubbletea model for the story tree panel.
type Model struct {
	ctx      context.Context
	supplier Supplier
	keys     KeyMap
	scope    string
	viewport viewport.Model
	copyText func(string) error

	roots    []tree.Node
	rows     []row
	expanded map[int64]bool
	cursor   int

	loading       bool
	loaded        bool
	err           error
	statusMessage string
	statusWarning bool

	width  int
	height int
}

// NewModel creates a panel over supplier. scope is shown in the header.
func NewModel(ctx context.Context, supplier Supplier, scope string) Model {
	return Model{
		ctx:      ctx,
		supplier: supplier,
		keys:     DefaultKeyMap(),
		scope:    scope,
		viewport: viewport.New(0, 0),
		copyText: clipboard.WriteAll,
		expanded: make(map[int64]bool),
		loading:  true,
	}
}

// Init loads the root and starts the poll timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadRoot(), pollTick())
}

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-3, 1)
		m.render()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case rootLoadedMsg:
		m.loading = false
		m.loaded = true
		m.err = msg.err
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Fetch failed: %v", msg.err), true)
		} else {
			m.roots = msg.nodes
		}
		m.rebuild()
		return m, nil

	case refreshDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Refresh failed: %v", msg.err), true)
			return m, nil
		}
		m.setStatus(tree.RefreshMessage, false)
		return m, m.loadRoot()

	case pollTickMsg:
		return m, tea.Batch(m.poll(), pollTick())

	case pollDoneMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Poll failed: %v", msg.err), true)
			return m, nil
		}
		if msg.refreshed {
			return m, m.loadRoot()
		}
		return m, nil

	case RootChangedMsg:
		return m, m.loadRoot()

	case StatusMsg:
		m.setStatus(msg.Text, msg.Warning)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.render()
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.render()
		}

	case key.Matches(msg, m.keys.Expand):
		if r, ok := m.current(); ok && r.node.Collapsible && !r.expanded {
			m.expanded[r.node.ID] = true
			m.rebuild()
		}

	case key.Matches(msg, m.keys.Collapse):
		m.collapse()

	case key.Matches(msg, m.keys.Refresh):
		if m.supplier.Fetching() {
			return m, nil
		}
		m.loading = true
		m.setStatus("Fetching stories...", false)
		return m, m.refresh()

	case key.Matches(msg, m.keys.Greeting):
		m.setStatus(tree.GreetingMessage, false)

	case key.Matches(msg, m.keys.Copy):
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		if err := m.copyText(r.node.Label); err != nil {
			m.setStatus(fmt.Sprintf("Copy failed: %v", err), true)
			return m, nil
		}
		m.setStatus("Copied "+r.node.Label, false)
	}
	return m, nil
}

// collapse closes the epic under the cursor, or the epic owning the story under it.
func (m *Model) collapse() {
	r, ok := m.current()
	if !ok {
		return
	}
	if r.expanded {
		delete(m.expanded, r.node.ID)
		m.rebuild()
		return
	}
	if r.depth == 0 {
		return
	}
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].depth < r.depth {
			m.cursor = i
			delete(m.expanded, m.rows[i].node.ID)
			m.rebuild()
			return
		}
	}
}

func (m *Model) setStatus(text string, warning bool) {
	m.statusMessage = text
	m.statusWarning = warning
}

func (m Model) current() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// rebuild flattens the roots and expanded epics into rows.
func (m *Model) rebuild() {
	rows := make([]row, 0, len(m.roots))
	for _, n := range m.roots {
		open := n.Collapsible && m.expanded[n.ID]
		rows = append(rows, row{node: n, expanded: open})
		if !open {
			continue
		}
		children, err := m.supplier.Children(m.ctx, &n)
		if err != nil {
			continue
		}
		for _, child := range children {
			rows = append(rows, row{node: child, depth: 1})
		}
	}
	m.rows = rows
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
	m.render()
}

// render writes the rows into the viewport and keeps the cursor visible.
func (m *Model) render() {
	var b strings.Builder
	for i, r := range m.rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.renderRow(i, r))
	}
	m.viewport.SetContent(b.String())

	if m.viewport.Height <= 0 {
		return
	}
	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m Model) renderRow(i int, r row) string {
	marker := "  "
	if r.node.Collapsible {
		marker = "▸ "
		if r.expanded {
			marker = "▾ "
		}
	}
	line := strings.Repeat("  ", r.depth) + marker + r.node.Label

	switch {
	case i == m.cursor:
		return selectedRowStyle.Render(line)
	case r.node.Kind == tree.KindEpic:
		return epicRowStyle.Render(line)
	default:
		return rowStyle.Render(line)
	}
}

// View renders the panel
func (m Model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderContent(),
		m.renderStatus(),
		m.renderHelp(),
	)
}

func (m Model) renderHeader() string {
	header := headerStyle.Render("Clubhouse Stories")
	if m.scope != "" {
		header += " " + projectScopeStyle.Render(m.scope)
	}
	if m.loading {
		header += " " + statusStyle.Render("(fetching)")
	}
	return header
}

func (m Model) renderContent() string {
	switch {
	case !m.loaded:
		return statusStyle.Render("Loading stories...")
	case m.err != nil && len(m.rows) == 0:
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress r to retry or q to quit.", m.err))
	case len(m.rows) == 0:
		return statusStyle.Render("No stories.")
	}
	return m.viewport.View()
}

func (m Model) renderStatus() string {
	if m.statusMessage == "" {
		return statusStyle.Render(" ")
	}
	if m.statusWarning {
		return warningStyle.Render(m.statusMessage)
	}
	return statusStyle.Render(m.statusMessage)
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, helpKeyStyle.Render(h.Key)+" "+helpDescStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

func (m Model) loadRoot() tea.Cmd {
	ctx, supplier := m.ctx, m.supplier
	return func() tea.Msg {
		nodes, err := supplier.Children(ctx, nil)
		return rootLoadedMsg{nodes: nodes, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	ctx, supplier := m.ctx, m.supplier
	return func() tea.Msg {
		return refreshDoneMsg{err: supplier.Refresh(ctx)}
	}
}

func (m Model) poll() tea.Cmd {
	ctx, supplier := m.ctx, m.supplier
	return func() tea.Msg {
		refreshed, err := supplier.Poll(ctx)
		return pollDoneMsg{refreshed: refreshed, err: err}
	}
}

func pollTick() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}
