package repository

import (
	"context"

	"github.com/rpggio/storytree/internal/domain/activity"
)

// SettingsRepository manages key/value settings persistence
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ActivityRepository manages fetch activity persistence
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
	List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// APIKeyRepository resolves bearer tokens for HTTP mode
type APIKeyRepository interface {
	Create(ctx context.Context, tenantID, token, description string) error
	ResolveTenant(ctx context.Context, token string) (string, error)
}
