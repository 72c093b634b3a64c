package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rpggio/storytree/internal/domain/issue"
	"github.com/rpggio/storytree/internal/domain/tree"
	"github.com/stretchr/testify/require"
)

type stubSupplier struct {
	mu         sync.Mutex
	nodes      []tree.Node
	err        error
	refreshErr error
	fetching   bool
	refreshed  bool
	refreshes  int
	polls      int
}

func (s *stubSupplier) Children(_ context.Context, node *tree.Node) ([]tree.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if node != nil {
		return node.Stories, nil
	}
	return s.nodes, s.err
}

func (s *stubSupplier) Refresh(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	return s.refreshErr
}

func (s *stubSupplier) Poll(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	return s.refreshed, nil
}

func (s *stubSupplier) Fetching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetching
}

type testHelper struct {
	t     *testing.T
	model Model
}

func newTestHelper(t *testing.T, supplier *stubSupplier) *testHelper {
	h := &testHelper{t: t, model: NewModel(context.Background(), supplier, "")}
	h.send(tea.WindowSizeMsg{Width: 80, Height: 20})
	h.run(h.model.loadRoot())
	return h
}

// send delivers msg and returns the resulting command without running it.
func (h *testHelper) send(msg tea.Msg) tea.Cmd {
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	return cmd
}

// run executes cmd and feeds its message back until no command remains.
func (h *testHelper) run(cmd tea.Cmd) {
	for cmd != nil {
		cmd = h.send(cmd())
	}
}

func (h *testHelper) key(r rune) tea.Cmd {
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func (h *testHelper) labels() []string {
	labels := make([]string, 0, len(h.model.rows))
	for _, r := range h.model.rows {
		labels = append(labels, r.node.Label)
	}
	return labels
}

func epicWithStories() []tree.Node {
	epicID := int64(1)
	return []tree.Node{
		tree.EpicNode(issue.Epic{ID: epicID, Name: "Billing"}, []tree.Node{
			tree.StoryNode(issue.Story{ID: 10, Name: "Invoice", EpicID: &epicID}),
			tree.StoryNode(issue.Story{ID: 11, Name: "Refunds", EpicID: &epicID}),
		}),
		tree.StoryNode(issue.Story{ID: 20, Name: "Loose"}),
	}
}

func TestModel_LoadsRoot(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{nodes: epicWithStories()})

	require.True(t, h.model.loaded)
	require.Equal(t, []string{"Billing (#1)", "Loose (#20)"}, h.labels())
	require.Contains(t, h.model.View(), "Loose (#20)")
}

func TestModel_ExpandAndCollapseEpic(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{nodes: epicWithStories()})

	h.key('l')
	require.Equal(t, []string{"Billing (#1)", "Invoice (#10)", "Refunds (#11)", "Loose (#20)"}, h.labels())
	require.True(t, h.model.rows[0].expanded)

	h.key('j')
	h.key('j')
	require.Equal(t, 2, h.model.cursor)

	h.key('h')
	require.Equal(t, 0, h.model.cursor)
	require.Equal(t, []string{"Billing (#1)", "Loose (#20)"}, h.labels())
}

func TestModel_EnterExpandsAndLeafIgnoresExpand(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{nodes: epicWithStories()})

	h.send(tea.KeyMsg{Type: tea.KeyDown})
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, h.model.rows, 2)

	h.send(tea.KeyMsg{Type: tea.KeyUp})
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, h.model.rows, 4)
}

func TestModel_CursorStaysInBounds(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{nodes: epicWithStories()})

	h.key('k')
	require.Equal(t, 0, h.model.cursor)
	h.key('j')
	h.key('j')
	h.key('j')
	require.Equal(t, 1, h.model.cursor)
}

func TestModel_RefreshShowsMessage(t *testing.T) {
	supplier := &stubSupplier{nodes: epicWithStories()}
	h := newTestHelper(t, supplier)

	cmd := h.key('r')
	require.NotNil(t, cmd)
	require.True(t, h.model.loading)

	h.run(cmd)
	require.Equal(t, 1, supplier.refreshes)
	require.False(t, h.model.loading)
	require.Equal(t, tree.RefreshMessage, h.model.statusMessage)
	require.False(t, h.model.statusWarning)
}

func TestModel_RefreshIgnoredWhileFetching(t *testing.T) {
	supplier := &stubSupplier{nodes: epicWithStories(), fetching: true}
	h := newTestHelper(t, supplier)

	require.Nil(t, h.key('r'))
	require.Equal(t, 0, supplier.refreshes)
}

func TestModel_RefreshFailureIsWarning(t *testing.T) {
	supplier := &stubSupplier{nodes: epicWithStories(), refreshErr: errors.New("boom")}
	h := newTestHelper(t, supplier)

	h.run(h.key('r'))
	require.True(t, h.model.statusWarning)
	require.Contains(t, h.model.statusMessage, "boom")
}

func TestModel_Greeting(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{})

	require.Nil(t, h.key('g'))
	require.Equal(t, tree.GreetingMessage, h.model.statusMessage)
}

func TestModel_QuitKey(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{})

	cmd := h.key('q')
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestModel_PollReloadsWhenRefreshed(t *testing.T) {
	supplier := &stubSupplier{nodes: epicWithStories(), refreshed: true}
	h := newTestHelper(t, supplier)

	msg := h.model.poll()()
	require.Equal(t, 1, supplier.polls)

	supplier.mu.Lock()
	supplier.nodes = supplier.nodes[1:]
	supplier.mu.Unlock()

	h.run(h.send(msg))
	require.Equal(t, []string{"Loose (#20)"}, h.labels())
}

func TestModel_PollNotStaleKeepsRows(t *testing.T) {
	supplier := &stubSupplier{nodes: epicWithStories()}
	h := newTestHelper(t, supplier)

	require.Nil(t, h.send(h.model.poll()()))
	require.Len(t, h.model.rows, 2)
}

func TestModel_FetchErrorShown(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{err: issue.ErrUnauthorized})

	require.True(t, h.model.statusWarning)
	require.Contains(t, h.model.View(), "Press r to retry")
}

func TestModel_EmptyTree(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{})

	require.Contains(t, h.model.View(), "No stories.")
}

func TestNotifier_DeliversMessages(t *testing.T) {
	var (
		mu   sync.Mutex
		msgs []tea.Msg
	)
	n := NewNotifier(nil)
	n.Info(context.Background(), "dropped before attach")

	n.attach(func(msg tea.Msg) {
		mu.Lock()
		defer mu.Unlock()
		msgs = append(msgs, msg)
	})
	n.Info(context.Background(), tree.GreetingMessage)
	n.Warn(context.Background(), tree.MissingProjectWarning)
	n.RootChanged(context.Background(), &tree.Snapshot{Generation: "g1"})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []tea.Msg{
		StatusMsg{Text: tree.GreetingMessage},
		StatusMsg{Text: tree.MissingProjectWarning, Warning: true},
		RootChangedMsg{Snapshot: &tree.Snapshot{Generation: "g1"}},
	}, msgs)
}

func TestModel_NotifierMessagesUpdateStatus(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{nodes: epicWithStories()})

	h.send(StatusMsg{Text: tree.MissingProjectWarning, Warning: true})
	require.True(t, strings.Contains(h.model.View(), tree.MissingProjectWarning))

	cmd := h.send(RootChangedMsg{})
	require.NotNil(t, cmd)
	h.run(cmd)
	require.Len(t, h.model.rows, 2)
}

func TestModel_CopyLabel(t *testing.T) {
	h := newTestHelper(t, &stubSupplier{nodes: epicWithStories()})
	var copied string
	h.model.copyText = func(text string) error {
		copied = text
		return nil
	}

	h.key('j')
	h.key('y')
	require.Equal(t, "Loose (#20)", copied)
	require.Equal(t, "Copied Loose (#20)", h.model.statusMessage)

	h.model.copyText = func(string) error { return errors.New("no clipboard") }
	h.key('y')
	require.True(t, h.model.statusWarning)
	require.Contains(t, h.model.statusMessage, "no clipboard")
}
