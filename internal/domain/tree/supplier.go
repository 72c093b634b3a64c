package tree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/storytree/internal/domain/activity"
	"github.com/rpggio/storytree/internal/domain/issue"
	"github.com/rpggio/storytree/internal/domain/settings"
)

// StaleAfter is how long a snapshot stays fresh after its fetch started.
const StaleAfter = 30 * time.Minute

// Messages shown to the user by hosts.
const (
	MissingProjectWarning = "Select a Clubhouse Project before getting stories!"
	GreetingMessage       = "Hello!"
	RefreshMessage        = "Refreshing Clubhouse Issues!"
)

type fetchState int

const (
	stateIdle fetchState = iota
	stateFetching
	stateReady
)

// pending is the handle shared by every caller waiting on one fetch cycle.
// snap and err are written once before done is closed.
type pending struct {
	done chan struct{}
	snap *Snapshot
	err  error
}

// Options configures a Supplier.
type Options struct {
	Service     Service
	Settings    SettingsReader
	Notifier    Notifier
	Activity    ActivityLogger
	Clock       Clock
	Logger      *slog.Logger
	ProjectID   *int64
	GroupByEpic bool
}

// Supplier provides the tree of stories to a host, fetching lazily with
// at most one fetch in flight.
type Supplier struct {
	service     Service
	notifier    Notifier
	activity    ActivityLogger
	clock       Clock
	logger      *slog.Logger
	apiToken    string
	groupByEpic bool

	mu              sync.Mutex
	state           fetchState
	inflight        *pending
	current         *pending
	lastFetch       time.Time
	selectedProject *int64
}

// NewSupplier creates a supplier. The API token is read once here.
func NewSupplier(ctx context.Context, opts Options) (*Supplier, error) {
	if opts.Service == nil {
		return nil, errors.New("tree: service is required")
	}

	var token string
	if opts.Settings != nil {
		value, err := opts.Settings.Get(ctx, settings.KeyAPIToken)
		if err != nil && !errors.Is(err, settings.ErrNotSet) {
			return nil, fmt.Errorf("reading api token: %w", err)
		}
		token = value
	}

	s := &Supplier{
		service:         opts.Service,
		notifier:        opts.Notifier,
		activity:        opts.Activity,
		clock:           opts.Clock,
		logger:          opts.Logger,
		apiToken:        token,
		groupByEpic:     opts.GroupByEpic,
		selectedProject: copyID(opts.ProjectID),
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if token == "" {
		s.logger.Warn("no clubhouse api token configured")
	}
	return s, nil
}

// Children returns the children of node. A nil node means the tree root,
// which triggers a fetch when nothing is cached yet.
func (s *Supplier) Children(ctx context.Context, node *Node) ([]Node, error) {
	if node != nil {
		switch node.Kind {
		case KindEpic:
			return node.Stories, nil
		default:
			return nil, nil
		}
	}

	snap, err := s.wait(ctx, s.load(ctx))
	if err != nil {
		return nil, err
	}
	return snap.Nodes, nil
}

// Snapshot returns the last successfully fetched snapshot, or nil.
func (s *Supplier) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateReady || s.current == nil || s.current.err != nil {
		return nil
	}
	return s.current.snap
}

// Fetching reports whether a fetch cycle is in flight.
func (s *Supplier) Fetching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateFetching
}

// LastFetch returns when the last fetch started, zero if none.
func (s *Supplier) LastFetch() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetch
}

// Refresh drops the cached snapshot and fetches again. A refresh requested
// while a fetch is in flight is dropped.
func (s *Supplier) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateFetching {
		s.mu.Unlock()
		s.logger.Debug("refresh skipped, fetch in flight")
		s.record(ctx, &activity.ActivityEntry{
			ActivityType: activity.TypeRefreshSkipped,
			Summary:      "refresh requested while fetching",
		})
		return nil
	}
	s.state = stateIdle
	s.current = nil
	p := s.startLocked(ctx)
	s.mu.Unlock()

	snap, err := s.wait(ctx, p)
	if err != nil {
		return err
	}
	s.notifier.RootChanged(ctx, snap)
	return nil
}

// Poll refreshes when nothing has been fetched or the last fetch is stale.
// It reports whether a refresh was attempted.
func (s *Supplier) Poll(ctx context.Context) (bool, error) {
	if !s.stale() {
		return false, nil
	}
	return true, s.Refresh(ctx)
}

// SelectProject narrows story fetches to a project; nil clears the scope.
// It takes effect on the next fetch.
func (s *Supplier) SelectProject(ctx context.Context, id *int64) {
	s.mu.Lock()
	s.selectedProject = copyID(id)
	s.mu.Unlock()

	summary := "project scope cleared"
	if id != nil {
		summary = fmt.Sprintf("project %d selected", *id)
	}
	s.record(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeProjectSelected,
		ProjectID:    copyID(id),
		Summary:      summary,
	})
}

// SelectedProject returns the current story scope.
func (s *Supplier) SelectedProject() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyID(s.selectedProject)
}

// Projects lists projects from the service. Results are not cached.
func (s *Supplier) Projects(ctx context.Context) ([]issue.Project, error) {
	return s.service.ListProjects(ctx, s.apiToken)
}

func (s *Supplier) stale() bool {
	s.mu.Lock()
	last := s.lastFetch
	s.mu.Unlock()
	if last.IsZero() {
		return true
	}
	return !s.clock.Now().Before(last.Add(StaleAfter))
}

// load returns the ready or in-flight handle, starting a fetch if idle.
func (s *Supplier) load(ctx context.Context) *pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateReady:
		return s.current
	case stateFetching:
		return s.inflight
	default:
		return s.startLocked(ctx)
	}
}

// startLocked moves Idle to Fetching. Callers must hold s.mu.
func (s *Supplier) startLocked(ctx context.Context) *pending {
	p := &pending{done: make(chan struct{})}
	s.state = stateFetching
	s.inflight = p
	s.lastFetch = s.clock.Now()
	project := copyID(s.selectedProject)

	go s.run(context.WithoutCancel(ctx), p, project)
	return p
}

func (s *Supplier) run(ctx context.Context, p *pending, project *int64) {
	snap, err := s.fetchCycle(ctx, project)

	s.mu.Lock()
	p.snap, p.err = snap, err
	s.inflight = nil
	s.current = p
	s.state = stateReady
	s.mu.Unlock()

	close(p.done)
}

func (s *Supplier) wait(ctx context.Context, p *pending) (*Snapshot, error) {
	select {
	case <-p.done:
		return p.snap, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Supplier) fetchCycle(ctx context.Context, project *int64) (*Snapshot, error) {
	snap := &Snapshot{
		Generation: uuid.NewString(),
		StartedAt:  s.clock.Now(),
		ProjectID:  project,
	}
	logger := s.logger.With("generation", snap.Generation)
	logger.Info("fetch started")
	s.record(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeFetchStarted,
		Generation:   snap.Generation,
		ProjectID:    project,
		Summary:      "fetch started",
	})

	epics, err := s.service.ListEpics(ctx, s.apiToken)
	if err != nil {
		return nil, s.failed(ctx, logger, snap, fmt.Errorf("fetching epics: %w", err))
	}

	if project == nil {
		s.notifier.Warn(ctx, MissingProjectWarning)
	}
	stories, err := s.service.ListStories(ctx, s.apiToken, project, false)
	if err != nil {
		return nil, s.failed(ctx, logger, snap, fmt.Errorf("fetching stories: %w", err))
	}

	snap.EpicCount = len(epics)
	snap.StoryCount = len(stories)
	if s.groupByEpic {
		snap.Nodes = groupByEpic(epics, stories)
	} else {
		snap.Nodes = storyNodes(stories)
	}

	logger.Info("fetch completed", "epics", snap.EpicCount, "stories", snap.StoryCount)
	s.record(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeFetchCompleted,
		Generation:   snap.Generation,
		ProjectID:    project,
		Summary:      fmt.Sprintf("fetched %d epics, %d stories", snap.EpicCount, snap.StoryCount),
	})
	return snap, nil
}

func (s *Supplier) failed(ctx context.Context, logger *slog.Logger, snap *Snapshot, err error) error {
	logger.Error("fetch failed", "error", err)
	s.record(ctx, &activity.ActivityEntry{
		ActivityType: activity.TypeFetchFailed,
		Generation:   snap.Generation,
		ProjectID:    snap.ProjectID,
		Summary:      "fetch failed",
		Details:      err.Error(),
	})
	return err
}

func (s *Supplier) record(ctx context.Context, entry *activity.ActivityEntry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.LogActivity(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", "type", entry.ActivityType, "error", err)
	}
}

func storyNodes(stories []issue.Story) []Node {
	nodes := make([]Node, 0, len(stories))
	for _, st := range stories {
		nodes = append(nodes, StoryNode(st))
	}
	return nodes
}

// groupByEpic nests stories under their epics. Stories without a known epic
// follow the epic nodes at the root.
func groupByEpic(epics []issue.Epic, stories []issue.Story) []Node {
	byEpic := make(map[int64][]Node, len(epics))
	known := make(map[int64]bool, len(epics))
	for _, e := range epics {
		known[e.ID] = true
	}

	var loose []Node
	for _, st := range stories {
		if st.EpicID != nil && known[*st.EpicID] {
			byEpic[*st.EpicID] = append(byEpic[*st.EpicID], StoryNode(st))
			continue
		}
		loose = append(loose, StoryNode(st))
	}

	nodes := make([]Node, 0, len(epics)+len(loose))
	for _, e := range epics {
		nodes = append(nodes, EpicNode(e, byEpic[e.ID]))
	}
	return append(nodes, loose...)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
