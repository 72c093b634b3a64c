package project

import "github.com/rpggio/storytree/internal/domain/issue"

// Summary is a project as shown in listings
type Summary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	Archived bool   `json:"archived,omitempty"`
	Selected bool   `json:"selected"`
}

// ListOptions filters project listings
type ListOptions struct {
	IncludeArchived bool
}

func summarize(p issue.Project, selected *int64) Summary {
	return Summary{
		ID:       p.ID,
		Name:     p.Name,
		Label:    issue.Label(p.Name, p.ID),
		Archived: p.Archived,
		Selected: selected != nil && *selected == p.ID,
	}
}
