package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rpggio/storytree/internal/repository"
)

// Well-known setting keys.
const (
	KeyAPIToken  = "clubhouse.apitoken"
	KeyProjectID = "clubhouse.project"
)

var (
	// ErrNotSet indicates no stored value and no default exist for a key.
	ErrNotSet = errors.New("setting not set")
	// ErrInvalidKey indicates an empty or malformed key.
	ErrInvalidKey = errors.New("invalid setting key")
)

// Repository provides persistence for settings.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Service reads persisted settings, falling back to configured defaults.
type Service struct {
	repo     Repository
	defaults map[string]string
	logger   *slog.Logger
}

// NewService creates a settings service. Defaults come from the config file and environment.
func NewService(repo Repository, defaults map[string]string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := make(map[string]string, len(defaults))
	for k, v := range defaults {
		if v != "" {
			d[k] = v
		}
	}
	return &Service{repo: repo, defaults: d, logger: logger}
}

// Get returns the stored value for key, or its default.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	value, err := s.repo.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("getting setting %s: %w", key, err)
	}
	if def, ok := s.defaults[key]; ok {
		return def, nil
	}
	return "", ErrNotSet
}

// Set persists a value for key.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.repo.Set(ctx, key, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	s.logger.Debug("setting stored", "key", key)
	return nil
}

// Clear removes a stored value so the default applies again.
func (s *Service) Clear(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("clearing %s: %w", key, err)
	}
	return nil
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, " \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
