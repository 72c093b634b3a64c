package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/storytree/internal/domain/issue"
	"github.com/rpggio/storytree/internal/domain/tree"
	"github.com/stretchr/testify/require"
)

type staticService struct{}

func (staticService) ListProjects(context.Context, string) ([]issue.Project, error) {
	return []issue.Project{{ID: 7, Name: "Platform"}}, nil
}

func (staticService) ListEpics(context.Context, string) ([]issue.Epic, error) {
	return []issue.Epic{{ID: 1, Name: "Epic A"}}, nil
}

func (staticService) ListStories(context.Context, string, *int64, bool) ([]issue.Story, error) {
	return []issue.Story{{ID: 10, Name: "Story X"}, {ID: 11, Name: "Story Y"}}, nil
}

type clientEvents struct {
	mu       sync.Mutex
	updated  []string
	messages []string
	signal   chan struct{}
}

func (e *clientEvents) add(list *[]string, v string) {
	e.mu.Lock()
	*list = append(*list, v)
	e.mu.Unlock()
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

func (e *clientEvents) snapshot() ([]string, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.updated...), append([]string(nil), e.messages...)
}

func connect(t *testing.T) (*sdkmcp.ClientSession, *clientEvents) {
	t.Helper()
	ctx := context.Background()

	notifier := NewNotifier(nil)
	supplier, err := tree.NewSupplier(ctx, tree.Options{
		Service:  staticService{},
		Notifier: notifier,
	})
	require.NoError(t, err)

	server := NewServer(Config{Supplier: supplier, Notifier: notifier})

	events := &clientEvents{signal: make(chan struct{}, 16)}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, &sdkmcp.ClientOptions{
		ResourceUpdatedHandler: func(_ context.Context, req *sdkmcp.ResourceUpdatedNotificationRequest) {
			events.add(&events.updated, req.Params.URI)
		},
		LoggingMessageHandler: func(_ context.Context, req *sdkmcp.LoggingMessageRequest) {
			msg, _ := req.Params.Data.(string)
			events.add(&events.messages, msg)
		},
	})

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	require.NoError(t, session.SetLoggingLevel(ctx, &sdkmcp.SetLoggingLevelParams{Level: "info"}))
	return session, events
}

func callText(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestServer_ListsTools(t *testing.T) {
	session, _ := connect(t)

	result, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{
		"show_greeting", "refresh_issues", "get_children", "poll_issues",
		"list_projects", "select_project", "get_fetch_activity",
	}, names)
}

func TestServer_GetChildrenAndResource(t *testing.T) {
	session, events := connect(t)
	ctx := context.Background()

	text, isErr := callText(t, session, "get_children", nil)
	require.False(t, isErr, text)
	var children ChildrenResponse
	require.NoError(t, json.Unmarshal([]byte(text), &children))
	require.Len(t, children.Nodes, 2)
	require.Equal(t, "Story X (#10)", children.Nodes[0].Label)

	res, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: RootResourceURI})
	require.NoError(t, err)
	var doc struct {
		Generation string      `json:"generation"`
		Nodes      []tree.Node `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &doc))
	require.Equal(t, children.Generation, doc.Generation)

	require.Eventually(t, func() bool {
		_, messages := events.snapshot()
		for _, m := range messages {
			if m == tree.MissingProjectWarning {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestServer_RefreshNotifiesSubscribers(t *testing.T) {
	session, events := connect(t)
	ctx := context.Background()

	require.NoError(t, session.Subscribe(ctx, &sdkmcp.SubscribeParams{URI: RootResourceURI}))

	text, isErr := callText(t, session, "refresh_issues", nil)
	require.False(t, isErr, text)
	require.Contains(t, text, RefreshMessage)

	require.Eventually(t, func() bool {
		updated, messages := events.snapshot()
		hasRefresh := false
		for _, m := range messages {
			if m == RefreshMessage {
				hasRefresh = true
			}
		}
		return len(updated) == 1 && updated[0] == RootResourceURI && hasRefresh
	}, time.Second, 10*time.Millisecond)
}

func TestServer_Greeting(t *testing.T) {
	session, events := connect(t)

	text, isErr := callText(t, session, "show_greeting", nil)
	require.False(t, isErr)
	require.JSONEq(t, `{"message":"Hello!"}`, text)

	require.Eventually(t, func() bool {
		_, messages := events.snapshot()
		return len(messages) == 1 && messages[0] == GreetingMessage
	}, time.Second, 10*time.Millisecond)
}

func TestServer_ToolErrorIsReported(t *testing.T) {
	session, _ := connect(t)

	text, isErr := callText(t, session, "get_children", map[string]any{"kind": "epic", "id": 42})
	require.True(t, isErr)
	var apiErr APIError
	require.NoError(t, json.Unmarshal([]byte(text), &apiErr))
	require.Equal(t, "NODE_NOT_FOUND", apiErr.Code)
}
