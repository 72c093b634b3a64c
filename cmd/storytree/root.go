package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rpggio/storytree/internal/app"
	"github.com/rpggio/storytree/internal/config"
	"github.com/rpggio/storytree/internal/domain/tree"
	"github.com/rpggio/storytree/internal/logging"
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags.
type rootOptions struct {
	verbose bool
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "storytree",
		Short: "Browse Clubhouse stories as a tree",
		Long: `storytree shows Clubhouse projects, epics and stories as a tree.

Configuration is read from the YAML file named by STORYTREE_CONFIG_PATH and
from STORYTREE_* environment variables.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")

	cmd.AddCommand(
		newTreeCmd(opts),
		newProjectsCmd(opts),
		newSelectCmd(opts),
		newBrowseCmd(opts),
		newLoginCmd(opts),
	)
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// session is the wiring shared by one command invocation.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	app    *app.App
	close  func() error
}

func (s *session) Close() {
	_ = s.app.Close()
	_ = s.close()
}

// open loads config and wires services. console receives logs when
// --verbose is set and no log file is configured.
func open(ctx context.Context, opts *rootOptions, console io.Writer, notifier tree.Notifier) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if !opts.verbose {
		console = io.Discard
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Path:    cfg.Log.Path,
		Console: console,
	})
	if err != nil {
		return nil, err
	}

	a, err := app.Open(ctx, cfg, logger, app.Options{Notifier: notifier})
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, app: a, close: closeLog}, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writerNotifier prints supplier messages for non-interactive commands.
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Info(_ context.Context, message string) {
	fmt.Fprintln(n.w, message)
}

func (n writerNotifier) Warn(_ context.Context, message string) {
	fmt.Fprintln(n.w, "Warning:", message)
}

func (writerNotifier) RootChanged(context.Context, *tree.Snapshot) {}
