package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpggio/storytree/internal/app"
	"github.com/rpggio/storytree/internal/config"
	"github.com/rpggio/storytree/internal/mcp"
	"github.com/rpggio/storytree/internal/transport"
	"github.com/stretchr/testify/require"
)

// ClubhouseToken is the API token the fake Clubhouse accepts.
const ClubhouseToken = "clubhouse-test-token"

// TestServer runs the HTTP transport against a fake Clubhouse.
type TestServer struct {
	Server    *httptest.Server
	Clubhouse *Clubhouse
	App       *app.App
	Token     string
	TenantID  string
}

// New starts a server whose /mcp endpoint accepts token for tenantID.
// configure may adjust the config before wiring.
func New(t *testing.T, token, tenantID string, configure ...func(*config.Config)) *TestServer {
	t.Helper()
	ctx := context.Background()

	ch := NewClubhouse(t, ClubhouseToken)

	var cfg config.Config
	cfg.DB.Path = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	cfg.Transport.Mode = "http"
	cfg.Auth.Enabled = true
	cfg.Clubhouse.URL = ch.URL()
	cfg.Clubhouse.Token = ClubhouseToken
	for _, fn := range configure {
		fn(&cfg)
	}

	notifier := mcp.NewNotifier(nil)
	a, err := app.Open(ctx, cfg, nil, app.Options{Notifier: notifier})
	require.NoError(t, err)

	server := mcp.NewServer(mcp.Config{
		Supplier: a.Supplier,
		Projects: a.Projects,
		Activity: a.Activity,
		Notifier: notifier,
	})

	routerCfg := transport.RouterConfig{MCP: transport.NewMCPHandler(server)}
	if cfg.Auth.Enabled {
		routerCfg.Resolver = a.APIKeys
	}
	httpServer := httptest.NewServer(transport.NewRouter(routerCfg))

	ts := &TestServer{
		Server:    httpServer,
		Clubhouse: ch,
		App:       a,
		Token:     token,
		TenantID:  tenantID,
	}
	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		httpServer.Close()
		_ = a.Close()
	})

	return ts
}

// AddAPIKey registers another bearer token.
func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.App.APIKeys.Create(context.Background(), tenantID, token, "test key")
}

// MCPURL returns the streamable HTTP endpoint.
func (ts *TestServer) MCPURL() string {
	return ts.Server.URL + "/mcp"
}
