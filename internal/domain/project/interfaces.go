package project

import (
	"context"

	"github.com/rpggio/storytree/internal/domain/issue"
)

// Source lists remote projects and applies the story scope.
type Source interface {
	Projects(ctx context.Context) ([]issue.Project, error)
	SelectProject(ctx context.Context, id *int64)
}

// Settings persists the selected project.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}
