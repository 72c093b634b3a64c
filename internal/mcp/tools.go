package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var emptyObjectSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// User actions
		{
			Name:        "show_greeting",
			Description: "Show a greeting message",
			InputSchema: emptyObjectSchema,
		},
		{
			Name:        "refresh_issues",
			Description: "Refetch epics and stories from Clubhouse. Ignored while a fetch is already running.",
			InputSchema: emptyObjectSchema,
		},

		// Tree data
		{
			Name:        "get_children",
			Description: "List the children of a tree node. Omit kind and id for the root, which fetches on first use.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind": map[string]any{
						"type":        "string",
						"description": "Node kind",
						"enum":        []string{"project", "epic", "story"},
					},
					"id": map[string]any{
						"type":        "integer",
						"description": "Node ID",
					},
				},
			},
		},
		{
			Name:        "poll_issues",
			Description: "Refresh when the last fetch is older than 30 minutes or nothing has been fetched",
			InputSchema: emptyObjectSchema,
		},

		// Projects
		{
			Name:        "list_projects",
			Description: "List Clubhouse projects, marking the selected one",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"include_archived": map[string]any{
						"type":        "boolean",
						"description": "Include archived projects",
					},
				},
			},
		},
		{
			Name:        "select_project",
			Description: "Select the project whose stories are fetched, or clear the selection",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{
						"type":        "integer",
						"description": "Project ID from list_projects",
					},
					"clear": map[string]any{
						"type":        "boolean",
						"description": "Clear the selection instead",
					},
				},
			},
		},

		// Activity
		{
			Name:        "get_fetch_activity",
			Description: "Get recent fetch activity, newest first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"generation": map[string]any{
						"type":        "string",
						"description": "Only entries for this fetch generation",
					},
					"type": map[string]any{
						"type":        "string",
						"description": "Only entries of this type",
						"enum":        []string{"fetch_started", "fetch_completed", "fetch_failed", "refresh_skipped", "project_selected"},
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of entries (default 50)",
					},
					"offset": map[string]any{
						"type":        "integer",
						"description": "Offset for pagination",
					},
				},
			},
		},
	}
}

func registerTools(server *sdkmcp.Server, handler *Handler, logger *slog.Logger) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			result, err := handler.Handle(ctx, name, args)
			if err != nil {
				logger.Warn("tool failed", "tool", name, "error", err)
				return errorResult(err), nil
			}
			return jsonResult(result), nil
		})
	}
}

func jsonResult(v any) *sdkmcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

func errorResult(err error) *sdkmcp.CallToolResult {
	var payload *APIError
	if !errors.As(err, &payload) {
		if payload = MapError(err); payload == nil {
			payload = &APIError{Code: "INTERNAL", Message: err.Error()}
		}
	}
	data, _ := json.Marshal(payload)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
