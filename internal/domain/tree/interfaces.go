package tree

import (
	"context"
	"time"

	"github.com/rpggio/storytree/internal/domain/activity"
	"github.com/rpggio/storytree/internal/domain/issue"
)

// Service is the remote issue tracker consumed by the supplier.
type Service interface {
	ListProjects(ctx context.Context, token string) ([]issue.Project, error)
	ListEpics(ctx context.Context, token string) ([]issue.Epic, error)
	ListStories(ctx context.Context, token string, projectID *int64, includeDescription bool) ([]issue.Story, error)
}

// SettingsReader reads persisted configuration values.
type SettingsReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// Notifier is the host's notification sink.
type Notifier interface {
	Info(ctx context.Context, message string)
	Warn(ctx context.Context, message string)
	RootChanged(ctx context.Context, snap *Snapshot)
}

// ActivityLogger records fetch cycle events.
type ActivityLogger interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}

// Clock abstracts the wall clock for staleness checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type nopNotifier struct{}

func (nopNotifier) Info(context.Context, string) {}
func (nopNotifier) Warn(context.Context, string) {}
func (nopNotifier) RootChanged(context.Context, *Snapshot) {}
