package clubhouse

import "github.com/rpggio/storytree/internal/domain/issue"

type project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Archived    bool   `json:"archived"`
}

func (p project) toIssue() issue.Project {
	return issue.Project{ID: p.ID, Name: p.Name, Description: p.Description, Archived: p.Archived}
}

type epic struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	State      string  `json:"state"`
	ProjectIDs []int64 `json:"project_ids"`
}

func (e epic) toIssue() issue.Epic {
	return issue.Epic{ID: e.ID, Name: e.Name, State: e.State, ProjectIDs: e.ProjectIDs}
}

type story struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	StoryType   string `json:"story_type"`
	EpicID      *int64 `json:"epic_id"`
	ProjectID   int64  `json:"project_id"`
	Description string `json:"description"`
}

func (s story) toIssue() issue.Story {
	return issue.Story{
		ID:          s.ID,
		Name:        s.Name,
		StoryType:   s.StoryType,
		EpicID:      s.EpicID,
		ProjectID:   s.ProjectID,
		Description: s.Description,
	}
}

type searchRequest struct {
	IncludesDescription bool `json:"includes_description"`
}
