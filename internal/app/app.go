package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpggio/storytree/internal/clubhouse"
	"github.com/rpggio/storytree/internal/config"
	"github.com/rpggio/storytree/internal/domain/activity"
	"github.com/rpggio/storytree/internal/domain/project"
	"github.com/rpggio/storytree/internal/domain/settings"
	"github.com/rpggio/storytree/internal/domain/tree"
	"github.com/rpggio/storytree/internal/sqlite"
)

// Options customizes wiring for a host.
type Options struct {
	Notifier   tree.Notifier
	HTTPClient *http.Client
}

// App holds the services shared by the storytree binaries.
type App struct {
	DB       *sqlite.DB
	Settings *settings.Service
	Activity *activity.Service
	APIKeys  *sqlite.APIKeyRepository
	Client   *clubhouse.Client
	Supplier *tree.Supplier
	Projects *project.Service
}

// Open opens the database and wires the services for cfg.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	settingsSvc := settings.NewService(sqlite.NewSettingsRepository(db), map[string]string{
		settings.KeyAPIToken:  cfg.Clubhouse.Token,
		settings.KeyProjectID: cfg.Clubhouse.ProjectID,
	}, logger)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)

	clientOpts := []clubhouse.Option{clubhouse.WithLogger(logger)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, clubhouse.WithHTTPClient(opts.HTTPClient))
	}
	client := clubhouse.NewClient(cfg.Clubhouse.URL, clientOpts...)

	projectID, err := project.SelectedID(ctx, settingsSvc)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	supplier, err := tree.NewSupplier(ctx, tree.Options{
		Service:     client,
		Settings:    settingsSvc,
		Notifier:    opts.Notifier,
		Activity:    activitySvc,
		Logger:      logger,
		ProjectID:   projectID,
		GroupByEpic: cfg.Tree.GroupByEpic,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		DB:       db,
		Settings: settingsSvc,
		Activity: activitySvc,
		APIKeys:  sqlite.NewAPIKeyRepository(db),
		Client:   client,
		Supplier: supplier,
		Projects: project.NewService(supplier, settingsSvc, logger),
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
