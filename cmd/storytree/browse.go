package main

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rpggio/storytree/internal/tui"
	"github.com/spf13/cobra"
)

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse stories in an interactive tree",
		Long: `The browse command opens a terminal tree of stories.

Keys: enter/l expand an epic, h collapse, r refresh, g greeting, q quit.
Stale data is refreshed every minute.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Console logs would corrupt the screen; only a log file is used.
			browseOpts := *opts
			browseOpts.verbose = false

			notifier := tui.NewNotifier(nil)
			s, err := open(cmd.Context(), &browseOpts, nil, notifier)
			if err != nil {
				return err
			}
			defer s.Close()

			scope := "all projects"
			if id := s.app.Supplier.SelectedProject(); id != nil {
				scope = "project " + strconv.FormatInt(*id, 10)
			}

			model := tui.NewModel(cmd.Context(), s.app.Supplier, scope)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			notifier.Attach(p)

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("browse: %w", err)
			}
			return nil
		},
	}
}
