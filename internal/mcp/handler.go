package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/storytree/internal/domain/activity"
	"github.com/rpggio/storytree/internal/domain/project"
	"github.com/rpggio/storytree/internal/domain/tree"
)

// Messages shown for the two user actions.
const (
	GreetingMessage = tree.GreetingMessage
	RefreshMessage  = tree.RefreshMessage
)

// TreeSupplier defines tree operations needed by MCP.
type TreeSupplier interface {
	Children(ctx context.Context, node *tree.Node) ([]tree.Node, error)
	Snapshot() *tree.Snapshot
	Refresh(ctx context.Context) error
	Poll(ctx context.Context) (bool, error)
	Fetching() bool
	LastFetch() time.Time
}

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error)
	Select(ctx context.Context, id int64) (*project.Summary, error)
	Clear(ctx context.Context) error
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// MessageSink shows messages to the user.
type MessageSink interface {
	Info(ctx context.Context, message string)
}

// Handler dispatches MCP tool calls.
type Handler struct {
	tree     TreeSupplier
	projects ProjectService
	activity ActivityService
	messages MessageSink
}

// NewHandler creates a new MCP handler.
func NewHandler(supplier TreeSupplier, projects ProjectService, activitySvc ActivityService, messages MessageSink) *Handler {
	return &Handler{
		tree:     supplier,
		projects: projects,
		activity: activitySvc,
		messages: messages,
	}
}

// Handle dispatches a tool call to the domain services.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "show_greeting":
		h.messages.Info(ctx, GreetingMessage)
		return MessageResponse{Message: GreetingMessage}, nil
	case "refresh_issues":
		if err := h.tree.Refresh(ctx); err != nil {
			return nil, mapError(err)
		}
		h.messages.Info(ctx, RefreshMessage)
		resp := RefreshResponse{
			Message:   RefreshMessage,
			Fetching:  h.tree.Fetching(),
			LastFetch: h.tree.LastFetch(),
		}
		if snap := h.tree.Snapshot(); snap != nil {
			resp.Generation = snap.Generation
			resp.StoryCount = snap.StoryCount
		}
		return resp, nil
	case "get_children":
		var req GetChildrenParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.children(ctx, req)
	case "poll_issues":
		refreshed, err := h.tree.Poll(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		return PollResponse{Refreshed: refreshed, LastFetch: h.tree.LastFetch()}, nil
	case "list_projects":
		var req ListProjectsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		projects, err := h.projects.List(ctx, project.ListOptions{IncludeArchived: req.IncludeArchived})
		if err != nil {
			return nil, mapError(err)
		}
		return projects, nil
	case "select_project":
		var req SelectProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.Clear {
			if err := h.projects.Clear(ctx); err != nil {
				return nil, mapError(err)
			}
			return SelectProjectResponse{Cleared: true}, nil
		}
		selected, err := h.projects.Select(ctx, req.ProjectID)
		if err != nil {
			return nil, mapError(err)
		}
		return SelectProjectResponse{Project: selected}, nil
	case "get_fetch_activity":
		var req GetFetchActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.activity.GetRecentActivity(ctx, activity.ListActivityOptions{
			Generation:   req.Generation,
			ActivityType: req.Type,
			Limit:        req.Limit,
			Offset:       req.Offset,
		})
		if err != nil {
			return nil, mapError(err)
		}
		resp := make([]ActivityEntryResponse, 0, len(entries))
		for _, entry := range entries {
			resp = append(resp, ActivityEntryResponse{
				Timestamp:  entry.CreatedAt,
				Type:       entry.ActivityType,
				Generation: entry.Generation,
				ProjectID:  entry.ProjectID,
				Summary:    entry.Summary,
				Details:    entry.Details,
			})
		}
		return resp, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

func (h *Handler) children(ctx context.Context, req GetChildrenParams) (ChildrenResponse, error) {
	var node *tree.Node
	if req.Kind != "" {
		found, ok := h.tree.Snapshot().Find(req.Kind, req.ID)
		if !ok {
			return ChildrenResponse{}, mapError(fmt.Errorf("%w: %s %d", ErrNodeNotFound, req.Kind, req.ID))
		}
		node = &found
	}

	nodes, err := h.tree.Children(ctx, node)
	if err != nil {
		return ChildrenResponse{}, mapError(err)
	}
	if nodes == nil {
		nodes = []tree.Node{}
	}
	resp := ChildrenResponse{Nodes: nodes}
	if snap := h.tree.Snapshot(); snap != nil {
		resp.Generation = snap.Generation
	}
	return resp, nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, out)
}
