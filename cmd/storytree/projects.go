package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rpggio/storytree/internal/domain/project"
	"github.com/spf13/cobra"
)

func newProjectsCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List Clubhouse projects",
		Long: `The projects command lists projects. The selected project is marked with *.

Example:
  storytree projects
  storytree projects --all --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context(), opts, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer s.Close()

			projects, err := s.app.Projects.List(cmd.Context(), project.ListOptions{IncludeArchived: all})
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), projects)
			}
			out := cmd.OutOrStdout()
			for _, p := range projects {
				mark := " "
				if p.Selected {
					mark = "*"
				}
				suffix := ""
				if p.Archived {
					suffix = " [archived]"
				}
				fmt.Fprintf(out, "%s %s%s\n", mark, p.Label, suffix)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include archived projects")
	return cmd
}

func newSelectCmd(opts *rootOptions) *cobra.Command {
	var clearSelection bool
	cmd := &cobra.Command{
		Use:   "select <project-id>",
		Short: "Select the project whose stories are shown",
		Long: `The select command stores the project used to scope story fetches.

Example:
  storytree select 42
  storytree select --clear`,
		Args: func(cmd *cobra.Command, args []string) error {
			if clearSelection {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if !clearSelection {
				parsed, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid project id %q", args[0])
				}
				id = parsed
			}

			s, err := open(cmd.Context(), opts, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if clearSelection {
				if err := s.app.Projects.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "Project selection cleared")
				return nil
			}

			selected, err := s.app.Projects.Select(cmd.Context(), id)
			if errors.Is(err, project.ErrProjectNotFound) {
				return fmt.Errorf("project %d not found; run storytree projects to list them", id)
			}
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(out, selected)
			}
			fmt.Fprintf(out, "Selected %s\n", selected.Label)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearSelection, "clear", false, "Clear the selection")
	return cmd
}
