package issue

import "fmt"

// Project represents a Clubhouse workspace grouping of work
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
}

// Epic represents a grouping of stories
type Epic struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	State      string  `json:"state,omitempty"`
	ProjectIDs []int64 `json:"project_ids,omitempty"`
}

// Story represents a single work item
type Story struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	StoryType   string `json:"story_type,omitempty"`
	EpicID      *int64 `json:"epic_id,omitempty"`
	ProjectID   int64  `json:"project_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// Label formats an entity name the way the tree displays it.
func Label(name string, id int64) string {
	return fmt.Sprintf("%s (#%d)", name, id)
}
