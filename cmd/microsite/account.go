package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/microsites/internal/model"
)

var publicCmd = &cobra.Command{
	Use:   "public",
	Short: "Browse published projects",
}

var publicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := store.PublicProjects(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderProjectTable(list))
		return nil
	},
}

var publicShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a published project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		p, err := store.PublicProject(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, renderProject(p))
		rendered, err := renderMarkdown(stateMarkdown(p.State))
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the caller, their role and profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		role, err := store.CallerRole(ctx)
		if err != nil {
			return err
		}

		name := "anonymous"
		if p := store.Principal(); !p.Anonymous() {
			name = string(p)
		}
		fields := []string{renderField("Role", string(role))}

		if role != model.RoleGuest {
			profile, err := store.CallerProfile(ctx)
			if err != nil {
				return err
			}
			display := "(not set)"
			if profile != nil {
				display = profile.Name
			}
			fields = append(fields, renderField("Name", display))
		}
		fmt.Fprint(cmd.OutOrStdout(), renderHeader(name, fields))
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or set user profiles",
}

var profileSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Set your display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.SaveCallerProfile(cmd.Context(), model.Profile{Name: args[0]}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Profile saved")
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show the profile of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := store.UserProfile(cmd.Context(), model.UserID(args[0]))
		if err != nil {
			return err
		}
		if profile == nil {
			return fmt.Errorf("user %s has no profile", args[0])
		}
		fmt.Fprint(cmd.OutOrStdout(), renderHeader(args[0], []string{renderField("Name", profile.Name)}))
		return nil
	},
}

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage user roles",
}

var roleAssignCmd = &cobra.Command{
	Use:   "assign <user> <role>",
	Short: "Assign a role to a user (admins only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := model.ParseRole(args[1])
		if err != nil {
			return err
		}
		if err := store.AssignCallerRole(cmd.Context(), model.UserID(args[0]), role); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to %s\n", role, args[0])
		return nil
	},
}

func init() {
	publicCmd.AddCommand(publicListCmd, publicShowCmd)
	profileCmd.AddCommand(profileSetCmd, profileShowCmd)
	roleCmd.AddCommand(roleAssignCmd)
	rootCmd.AddCommand(publicCmd, whoamiCmd, profileCmd, roleCmd)
}
