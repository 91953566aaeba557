package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/query"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage your projects",
}

// descriptionFlag is nil unless --description was given, so an empty value
// clears the description.
func descriptionFlag(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("description") {
		return nil
	}
	d, _ := cmd.Flags().GetString("description")
	return &d
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := store.UserProjects(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderProjectTable(list))
		return nil
	},
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a draft project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := store.CreateProject(cmd.Context(), args[0], descriptionFlag(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", id)
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project and preview its content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		p, err := store.Project(cmd.Context(), id, query.Force())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, renderProject(p))

		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Fprintln(out)
			fmt.Fprint(out, stateMarkdown(p.State))
			return nil
		}
		if !p.State.Empty() {
			rendered, err := renderMarkdown(stateMarkdown(p.State))
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
		}
		return nil
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <id> <name>",
	Short: "Rename a project or change its description",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		desc := descriptionFlag(cmd)
		if desc == nil {
			// Keep the current description.
			p, err := store.Project(cmd.Context(), id)
			if err != nil {
				return err
			}
			desc = p.Description
		}
		if err := store.UpdateProject(cmd.Context(), id, args[1], desc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s\n", id)
		return nil
	},
}

var errDeleteNotConfirmed = errors.New("deleting a project cannot be undone, pass --force to confirm")

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		if force, _ := cmd.Flags().GetBool("force"); !force {
			return errDeleteNotConfirmed
		}
		if err := store.DeleteProject(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", id)
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().String("description", "", "project description")
	projectUpdateCmd.Flags().String("description", "", "new description (empty clears it)")
	projectShowCmd.Flags().Bool("raw", false, "print the content without rendering")
	projectDeleteCmd.Flags().Bool("force", false, "delete without asking")

	projectCmd.AddCommand(projectListCmd, projectCreateCmd, projectShowCmd, projectUpdateCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
