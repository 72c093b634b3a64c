package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rpggio/storytree/internal/domain/settings"
)

// Service handles project listing and selection.
type Service struct {
	source   Source
	settings Settings
	logger   *slog.Logger
}

// NewService creates a new project service.
func NewService(source Source, store Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{source: source, settings: store, logger: logger}
}

// List returns the remote projects, marking the selected one.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	projects, err := s.source.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	selected, err := s.Selected(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(projects))
	for _, p := range projects {
		if p.Archived && !opts.IncludeArchived {
			continue
		}
		out = append(out, summarize(p, selected))
	}
	return out, nil
}

// Select validates the project exists, persists it, and scopes the next fetch to it.
func (s *Service) Select(ctx context.Context, id int64) (*Summary, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	projects, err := s.source.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	for _, p := range projects {
		if p.ID != id {
			continue
		}
		if err := s.settings.Set(ctx, settings.KeyProjectID, strconv.FormatInt(id, 10)); err != nil {
			return nil, fmt.Errorf("saving project selection: %w", err)
		}
		s.source.SelectProject(ctx, &id)
		s.logger.Info("project selected", "project_id", id, "name", p.Name)
		summary := summarize(p, &id)
		return &summary, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrProjectNotFound, id)
}

// Clear removes the selection; later fetches are unscoped.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.settings.Clear(ctx, settings.KeyProjectID); err != nil {
		return fmt.Errorf("clearing project selection: %w", err)
	}
	s.source.SelectProject(ctx, nil)
	return nil
}

// Selected returns the persisted project selection, or nil.
func (s *Service) Selected(ctx context.Context) (*int64, error) {
	return SelectedID(ctx, s.settings)
}

// SelectedID parses the project selection from settings.
func SelectedID(ctx context.Context, store interface {
	Get(ctx context.Context, key string) (string, error)
}) (*int64, error) {
	raw, err := store.Get(ctx, settings.KeyProjectID)
	if errors.Is(err, settings.ErrNotSet) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading project selection: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: project id %q", ErrInvalidInput, raw)
	}
	return &id, nil
}
