package tui

import (
	"context"
	"io"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rpggio/storytree/internal/domain/tree"
)

// Notifier delivers supplier notifications to a running program as messages.
type Notifier struct {
	logger *slog.Logger

	mu   sync.RWMutex
	send func(tea.Msg)
}

var _ tree.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier. Messages are only logged until Attach is called.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{logger: logger}
}

// Attach routes notifications to p.
func (n *Notifier) Attach(p *tea.Program) {
	n.attach(p.Send)
}

func (n *Notifier) attach(send func(tea.Msg)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.send = send
}

// Info shows an informational message in the status bar.
func (n *Notifier) Info(_ context.Context, message string) {
	n.logger.Info(message)
	n.deliver(StatusMsg{Text: message})
}

// Warn shows a warning in the status bar.
func (n *Notifier) Warn(_ context.Context, message string) {
	n.logger.Warn(message)
	n.deliver(StatusMsg{Text: message, Warning: true})
}

// RootChanged asks the panel to reload the root.
func (n *Notifier) RootChanged(_ context.Context, snap *tree.Snapshot) {
	if snap != nil {
		n.logger.Debug("tree root changed", "generation", snap.Generation)
	}
	n.deliver(RootChangedMsg{Snapshot: snap})
}

func (n *Notifier) deliver(msg tea.Msg) {
	n.mu.RLock()
	send := n.send
	n.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}
