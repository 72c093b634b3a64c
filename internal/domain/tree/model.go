package tree

import (
	"time"

	"github.com/rpggio/storytree/internal/domain/issue"
)

// Kind tags the variant of a display node
type Kind string

const (
	KindProject Kind = "project"
	KindEpic    Kind = "epic"
	KindStory   Kind = "story"
)

// Node is an immutable item shown in the tree. Only epic nodes carry children.
type Node struct {
	Kind        Kind   `json:"kind"`
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Collapsible bool   `json:"collapsible"`
	Stories     []Node `json:"stories,omitempty"`
}

// Snapshot is one generation of the tree produced by a fetch cycle
type Snapshot struct {
	Generation string    `json:"generation"`
	StartedAt  time.Time `json:"started_at"`
	ProjectID  *int64    `json:"project_id,omitempty"`
	Nodes      []Node    `json:"nodes"`
	EpicCount  int       `json:"epic_count"`
	StoryCount int       `json:"story_count"`
}

// ProjectNode builds a leaf node for a project.
func ProjectNode(p issue.Project) Node {
	return Node{Kind: KindProject, ID: p.ID, Label: issue.Label(p.Name, p.ID)}
}

// EpicNode builds a collapsible node owning the given stories.
func EpicNode(e issue.Epic, stories []Node) Node {
	return Node{
		Kind:        KindEpic,
		ID:          e.ID,
		Label:       issue.Label(e.Name, e.ID),
		Collapsible: true,
		Stories:     stories,
	}
}

// StoryNode builds a leaf node for a story.
func StoryNode(s issue.Story) Node {
	return Node{Kind: KindStory, ID: s.ID, Label: issue.Label(s.Name, s.ID)}
}

// Find returns the node with the given kind and ID, searching epic children too.
func (s *Snapshot) Find(kind Kind, id int64) (Node, bool) {
	if s == nil {
		return Node{}, false
	}
	for _, n := range s.Nodes {
		if n.Kind == kind && n.ID == id {
			return n, true
		}
		for _, child := range n.Stories {
			if child.Kind == kind && child.ID == id {
				return child, true
			}
		}
	}
	return Node{}, false
}
