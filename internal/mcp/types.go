package mcp

import (
	"time"

	"github.com/rpggio/storytree/internal/domain/activity"
	"github.com/rpggio/storytree/internal/domain/project"
	"github.com/rpggio/storytree/internal/domain/tree"
)

// ToolDefinition describes a tool exposed to MCP clients.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

type GetChildrenParams struct {
	Kind tree.Kind `json:"kind,omitempty"`
	ID   int64     `json:"id,omitempty"`
}

type ListProjectsParams struct {
	IncludeArchived bool `json:"include_archived,omitempty"`
}

type SelectProjectParams struct {
	ProjectID int64 `json:"project_id,omitempty"`
	Clear     bool  `json:"clear,omitempty"`
}

type GetFetchActivityParams struct {
	Generation string                 `json:"generation,omitempty"`
	Type       *activity.ActivityType `json:"type,omitempty"`
	Limit      int                    `json:"limit,omitempty"`
	Offset     int                    `json:"offset,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ChildrenResponse struct {
	Generation string      `json:"generation,omitempty"`
	Nodes      []tree.Node `json:"nodes"`
}

type RefreshResponse struct {
	Message    string    `json:"message"`
	Fetching   bool      `json:"fetching"`
	Generation string    `json:"generation,omitempty"`
	StoryCount int       `json:"story_count"`
	LastFetch  time.Time `json:"last_fetch"`
}

type PollResponse struct {
	Refreshed bool      `json:"refreshed"`
	LastFetch time.Time `json:"last_fetch"`
}

type SelectProjectResponse struct {
	Project *project.Summary `json:"project,omitempty"`
	Cleared bool             `json:"cleared,omitempty"`
}

type ActivityEntryResponse struct {
	Timestamp  time.Time             `json:"timestamp"`
	Type       activity.ActivityType `json:"type"`
	Generation string                `json:"generation,omitempty"`
	ProjectID  *int64                `json:"project_id,omitempty"`
	Summary    string                `json:"summary"`
	Details    string                `json:"details,omitempty"`
}
