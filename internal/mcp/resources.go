package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// RootResourceURI identifies the tree root. Clients subscribed to it receive
// resources/updated after each successful refresh.
const RootResourceURI = "storytree://tree/root"

const serverInstructions = `storytree shows Clubhouse stories as a tree.

- get_children with no arguments returns the root. The first call fetches from Clubhouse; later calls reuse the cached snapshot.
- Epic nodes are collapsible; pass kind=epic and id to get their stories.
- refresh_issues refetches now. poll_issues refetches only when the snapshot is 30 minutes old.
- Stories are scoped to the selected project. Use list_projects and select_project; without a selection a warning is logged and an unscoped query is sent.
- Subscribe to ` + RootResourceURI + ` to hear about refreshed snapshots.
`

// rootDocument is the JSON body of the root resource.
type rootDocument struct {
	Generation string `json:"generation"`
	ProjectID  *int64 `json:"project_id,omitempty"`
	EpicCount  int    `json:"epic_count"`
	StoryCount int    `json:"story_count"`
	Fetching   bool   `json:"fetching"`
	Nodes      any    `json:"nodes"`
}

func registerTreeResource(server *sdkmcp.Server, supplier TreeSupplier) {
	server.AddResource(&sdkmcp.Resource{
		URI:         RootResourceURI,
		Name:        "tree_root",
		Title:       "Story tree root",
		Description: "Root nodes of the current snapshot, fetched on first read.",
		MIMEType:    "application/json",
	}, func(ctx context.Context, _ *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		nodes, err := supplier.Children(ctx, nil)
		if err != nil {
			return nil, mapError(err)
		}
		doc := rootDocument{Nodes: nodes, Fetching: supplier.Fetching()}
		if snap := supplier.Snapshot(); snap != nil {
			doc.Generation = snap.Generation
			doc.ProjectID = snap.ProjectID
			doc.EpicCount = snap.EpicCount
			doc.StoryCount = snap.StoryCount
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding tree root: %w", err)
		}
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{
				URI:      RootResourceURI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	})
}
