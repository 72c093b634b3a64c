package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeFetchStarted    ActivityType = "fetch_started"
	TypeFetchCompleted  ActivityType = "fetch_completed"
	TypeFetchFailed     ActivityType = "fetch_failed"
	TypeRefreshSkipped  ActivityType = "refresh_skipped"
	TypeProjectSelected ActivityType = "project_selected"
)

// ActivityEntry represents an event in the fetch activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ActivityType ActivityType `json:"type"`
	Generation   string       `json:"generation,omitempty"`
	ProjectID    *int64       `json:"project_id,omitempty"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
