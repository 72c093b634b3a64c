package mocks

import (
	"context"

	"github.com/rpggio/storytree/internal/domain/activity"
	"github.com/rpggio/storytree/internal/domain/issue"
	"github.com/stretchr/testify/mock"
)

// SettingsRepository is a mock for repository.SettingsRepository.
type SettingsRepository struct {
	mock.Mock
}

func (m *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *SettingsRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *SettingsRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// IssueService is a mock for tree.Service.
type IssueService struct {
	mock.Mock
}

func (m *IssueService) ListProjects(ctx context.Context, token string) ([]issue.Project, error) {
	args := m.Called(ctx, token)
	if list, ok := args.Get(0).([]issue.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IssueService) ListEpics(ctx context.Context, token string) ([]issue.Epic, error) {
	args := m.Called(ctx, token)
	if list, ok := args.Get(0).([]issue.Epic); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IssueService) ListStories(ctx context.Context, token string, projectID *int64, includeDescription bool) ([]issue.Story, error) {
	args := m.Called(ctx, token, projectID, includeDescription)
	if list, ok := args.Get(0).([]issue.Story); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProjectSource is a mock for project.Source.
type ProjectSource struct {
	mock.Mock
}

func (m *ProjectSource) Projects(ctx context.Context) ([]issue.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]issue.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectSource) SelectProject(ctx context.Context, id *int64) {
	m.Called(ctx, id)
}
