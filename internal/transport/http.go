package transport

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultTenant is used when auth is disabled.
const DefaultTenant = "default"

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	MCP      http.Handler
	Resolver TenantResolver
	Logger   *slog.Logger
}

// NewMCPHandler serves server over the streamable HTTP transport.
func NewMCPHandler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
		},
	)
}

// NewRouter creates the HTTP router. A nil Resolver disables auth.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if cfg.Resolver != nil {
			r.Use(AuthMiddleware(cfg.Resolver))
		} else {
			r.Use(StaticTenant(DefaultTenant))
		}
		r.Use(RequestLogger(logger))
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
