package testserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/storytree/internal/config"
	"github.com/rpggio/storytree/internal/domain/activity"
	"github.com/rpggio/storytree/internal/domain/issue"
	"github.com/rpggio/storytree/internal/domain/settings"
	"github.com/rpggio/storytree/internal/domain/tree"
	"github.com/rpggio/storytree/internal/mcp"
	"github.com/rpggio/storytree/internal/testserver"
	"github.com/stretchr/testify/require"
)

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}

func seed(ts *testserver.TestServer) {
	epicID := int64(100)
	ts.Clubhouse.SetData(
		[]issue.Project{
			{ID: 7, Name: "Platform"},
			{ID: 8, Name: "Mobile"},
			{ID: 9, Name: "Legacy", Archived: true},
		},
		[]issue.Epic{{ID: epicID, Name: "Billing"}},
		[]issue.Story{
			{ID: 1, Name: "Invoice export", ProjectID: 7, EpicID: &epicID},
			{ID: 2, Name: "Dark mode", ProjectID: 8},
			{ID: 3, Name: "Rate limits", ProjectID: 7},
		},
	)
}

func connect(t *testing.T, ts *testserver.TestServer) *sdkmcp.ClientSession {
	t.Helper()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "e2e-client", Version: "v0.0.1"}, nil)
	transport := &sdkmcp.StreamableClientTransport{
		Endpoint: ts.MCPURL(),
		HTTPClient: &http.Client{
			Transport: bearerTransport{token: ts.Token, base: http.DefaultTransport},
		},
	}
	session, err := client.Connect(context.Background(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	text, isErr := callRaw(t, session, name, args)
	require.False(t, isErr, text)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(text), out))
	}
}

func callRaw(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text, result.IsError
}

func labels(nodes []tree.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Label)
	}
	return out
}

func TestFunctional_Authentication(t *testing.T) {
	ts := testserver.New(t, "api-token", "tenant1")

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	resp, err = http.Post(ts.MCPURL(), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.MCPURL(), strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong-token")
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFunctional_BrowseSelectAndRefresh(t *testing.T) {
	ts := testserver.New(t, "api-token", "tenant1")
	seed(ts)
	session := connect(t, ts)
	ctx := context.Background()

	var root mcp.ChildrenResponse
	callTool(t, session, "get_children", nil, &root)
	require.Equal(t, []string{"Invoice export (#1)", "Dark mode (#2)", "Rate limits (#3)"}, labels(root.Nodes))
	require.Equal(t, 1, ts.Clubhouse.Requests("/stories/search"))

	var projects []struct {
		ID       int64  `json:"id"`
		Label    string `json:"label"`
		Selected bool   `json:"selected"`
	}
	callTool(t, session, "list_projects", nil, &projects)
	require.Len(t, projects, 2)
	require.Equal(t, "Platform (#7)", projects[0].Label)

	var selected mcp.SelectProjectResponse
	callTool(t, session, "select_project", map[string]any{"project_id": 7}, &selected)
	require.NotNil(t, selected.Project)
	require.True(t, selected.Project.Selected)

	stored, err := ts.App.Settings.Get(ctx, settings.KeyProjectID)
	require.NoError(t, err)
	require.Equal(t, "7", stored)

	var refreshed mcp.RefreshResponse
	callTool(t, session, "refresh_issues", nil, &refreshed)
	require.Equal(t, mcp.RefreshMessage, refreshed.Message)
	require.Equal(t, 2, refreshed.StoryCount)
	require.NotEqual(t, root.Generation, refreshed.Generation)

	var scoped mcp.ChildrenResponse
	callTool(t, session, "get_children", nil, &scoped)
	require.Equal(t, []string{"Invoice export (#1)", "Rate limits (#3)"}, labels(scoped.Nodes))
	require.Equal(t, 1, ts.Clubhouse.Requests("/projects/7/stories"))

	var entries []mcp.ActivityEntryResponse
	callTool(t, session, "get_fetch_activity", nil, &entries)
	types := make(map[activity.ActivityType]int)
	for _, e := range entries {
		types[e.Type]++
	}
	require.Equal(t, 2, types[activity.TypeFetchStarted])
	require.Equal(t, 2, types[activity.TypeFetchCompleted])
	require.Equal(t, 1, types[activity.TypeProjectSelected])
}

func TestFunctional_ConcurrentCallsShareOneFetch(t *testing.T) {
	ts := testserver.New(t, "api-token", "tenant1")
	seed(ts)
	session := connect(t, ts)

	var wg sync.WaitGroup
	results := make([]mcp.ChildrenResponse, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "get_children"})
			if err != nil || result.IsError {
				return
			}
			text := result.Content[0].(*sdkmcp.TextContent).Text
			_ = json.Unmarshal([]byte(text), &results[i])
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, ts.Clubhouse.Requests("/epics"))
	require.Equal(t, 1, ts.Clubhouse.Requests("/stories/search"))
	for _, r := range results {
		require.Equal(t, results[0].Generation, r.Generation)
		require.Len(t, r.Nodes, 3)
	}
}

func TestFunctional_UnscopedRejection(t *testing.T) {
	ts := testserver.New(t, "api-token", "tenant1")
	seed(ts)
	ts.Clubhouse.RejectUnscoped(true)
	session := connect(t, ts)

	text, isErr := callRaw(t, session, "get_children", nil)
	require.True(t, isErr)
	var apiErr mcp.APIError
	require.NoError(t, json.Unmarshal([]byte(text), &apiErr))
	require.Equal(t, "INVALID_SCOPE", apiErr.Code)

	var entries []mcp.ActivityEntryResponse
	callTool(t, session, "get_fetch_activity", map[string]any{"type": "fetch_failed"}, &entries)
	require.Len(t, entries, 1)
}

func TestFunctional_ConfiguredProjectAndEpicGrouping(t *testing.T) {
	ts := testserver.New(t, "api-token", "tenant1", func(cfg *config.Config) {
		cfg.Clubhouse.ProjectID = "7"
		cfg.Tree.GroupByEpic = true
	})
	seed(ts)
	session := connect(t, ts)

	var root mcp.ChildrenResponse
	callTool(t, session, "get_children", nil, &root)
	require.Equal(t, []string{"Billing (#100)", "Rate limits (#3)"}, labels(root.Nodes))
	require.Equal(t, 0, ts.Clubhouse.Requests("/stories/search"))

	var epic mcp.ChildrenResponse
	callTool(t, session, "get_children", map[string]any{"kind": "epic", "id": 100}, &epic)
	require.Equal(t, []string{"Invoice export (#1)"}, labels(epic.Nodes))
}

func TestFunctional_InvalidClubhouseToken(t *testing.T) {
	ts := testserver.New(t, "api-token", "tenant1", func(cfg *config.Config) {
		cfg.Clubhouse.Token = "stale-token"
	})
	seed(ts)
	session := connect(t, ts)

	text, isErr := callRaw(t, session, "get_children", nil)
	require.True(t, isErr)
	var apiErr mcp.APIError
	require.NoError(t, json.Unmarshal([]byte(text), &apiErr))
	require.Equal(t, "UNAUTHORIZED", apiErr.Code)
}
