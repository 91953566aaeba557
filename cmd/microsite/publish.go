package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/microsites/internal/model"
)

var publishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish a project and print its public URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		c := controller()
		if err := c.Publish(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", c.PublicURL(id))
		return nil
	},
}

var unpublishCmd = &cobra.Command{
	Use:   "unpublish <id>",
	Short: "Take a project back to draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		if err := controller().Unpublish(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project %s is now a draft\n", id)
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Switch a project between draft and published",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		status, err := controller().Toggle(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project %s is now %s\n", id, renderStatus(status))
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <id>",
	Short: "Print the public URL of a published project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		url, ok, err := controller().ShareURL(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("project %s is not published", id)
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd, unpublishCmd, toggleCmd, shareCmd)
}
