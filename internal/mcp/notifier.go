package mcp

import (
	"context"
	"io"
	"log/slog"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/storytree/internal/domain/tree"
)

// Notifier forwards supplier notifications to connected MCP clients and the log.
type Notifier struct {
	logger *slog.Logger

	mu     sync.RWMutex
	server *sdkmcp.Server
}

var _ tree.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier. It only logs until NewServer binds it.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{logger: logger}
}

func (n *Notifier) bind(server *sdkmcp.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.server = server
}

func (n *Notifier) current() *sdkmcp.Server {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.server
}

// Info shows an informational message.
func (n *Notifier) Info(ctx context.Context, message string) {
	n.logger.Info(message)
	n.broadcast(ctx, "info", message)
}

// Warn shows a warning message.
func (n *Notifier) Warn(ctx context.Context, message string) {
	n.logger.Warn(message)
	n.broadcast(ctx, "warning", message)
}

// RootChanged tells subscribed clients the root resource has a new snapshot.
func (n *Notifier) RootChanged(ctx context.Context, snap *tree.Snapshot) {
	if snap != nil {
		n.logger.Info("tree root changed", "generation", snap.Generation, "stories", snap.StoryCount)
	}
	server := n.current()
	if server == nil {
		return
	}
	if err := server.ResourceUpdated(ctx, &sdkmcp.ResourceUpdatedNotificationParams{URI: RootResourceURI}); err != nil {
		n.logger.Warn("failed to send resource update", "uri", RootResourceURI, "error", err)
	}
}

func (n *Notifier) broadcast(ctx context.Context, level sdkmcp.LoggingLevel, message string) {
	server := n.current()
	if server == nil {
		return
	}
	for session := range server.Sessions() {
		err := session.Log(ctx, &sdkmcp.LoggingMessageParams{
			Level:  level,
			Logger: "storytree",
			Data:   message,
		})
		if err != nil {
			n.logger.Debug("failed to send log message", "error", err)
		}
	}
}
