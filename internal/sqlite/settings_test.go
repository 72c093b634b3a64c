package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/storytree/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository_SetGetDelete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSettingsRepository(db)

	_, err := repo.Get(ctx, "clubhouse.project")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Set(ctx, "clubhouse.project", "7"))
	value, err := repo.Get(ctx, "clubhouse.project")
	require.NoError(t, err)
	require.Equal(t, "7", value)

	require.NoError(t, repo.Set(ctx, "clubhouse.project", "9"))
	value, err = repo.Get(ctx, "clubhouse.project")
	require.NoError(t, err)
	require.Equal(t, "9", value)

	require.NoError(t, repo.Delete(ctx, "clubhouse.project"))
	require.ErrorIs(t, repo.Delete(ctx, "clubhouse.project"), repository.ErrNotFound)
	_, err = repo.Get(ctx, "clubhouse.project")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
