package mcp

import (
	"context"
	"io"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Config contains server configuration.
type Config struct {
	Supplier TreeSupplier
	Projects ProjectService
	Activity ActivityService
	Notifier *Notifier
	Version  string
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewNotifier(logger)
	}
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "storytree",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
		SubscribeHandler: func(_ context.Context, req *sdkmcp.SubscribeRequest) error {
			logger.Debug("resource subscribed", "uri", req.Params.URI)
			return nil
		},
		UnsubscribeHandler: func(_ context.Context, req *sdkmcp.UnsubscribeRequest) error {
			logger.Debug("resource unsubscribed", "uri", req.Params.URI)
			return nil
		},
	})
	notifier.bind(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	registerTreeResource(server, cfg.Supplier)
	registerTools(server, NewHandler(cfg.Supplier, cfg.Projects, cfg.Activity, notifier), logger)

	return server
}
