package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/microsites/internal/editor"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/pages"
	"github.com/debemdeboas/microsites/internal/theme"
)

// readBody reads the body from path, or from stdin when path is "-".
func readBody(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// applyEdits sets the fields whose flags were given and returns the
// resulting status.
func applyEdits(cmd *cobra.Command, s *editor.Session) (editor.Status, error) {
	flags := cmd.Flags()
	status := s.Status()
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		status = s.SetTitle(v)
	}
	if flags.Changed("tagline") {
		v, _ := flags.GetString("tagline")
		status = s.SetTagline(v)
	}
	if flags.Changed("body-file") {
		path, _ := flags.GetString("body-file")
		body, err := readBody(cmd, path)
		if err != nil {
			return status, fmt.Errorf("reading body: %w", err)
		}
		status = s.SetBody(body)
	}
	if flags.Changed("theme") {
		v, _ := flags.GetString("theme")
		t, err := model.ParseTheme(v)
		if err != nil {
			return status, err
		}
		if status, err = s.SetTheme(t); err != nil {
			return status, err
		}
	}
	return status, nil
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit the title, tagline, body or theme of a project and save it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		open := sessions.Open
		if reload, _ := cmd.Flags().GetBool("reload"); reload {
			open = sessions.Reload
		}
		s, err := open(cmd.Context(), id)
		if err != nil {
			return err
		}
		defer sessions.Discard(id)

		status, err := applyEdits(cmd, s)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if status == editor.Clean {
			fmt.Fprintln(out, "No changes")
			return nil
		}
		if err := s.Save(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved project %s\n", id)
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <id>",
	Short: "Preview the saved content of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := model.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		p, err := store.Project(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if asHTML, _ := cmd.Flags().GetBool("html"); asHTML {
			renderer, err := pages.NewRenderer(cfg.Site.Name)
			if err != nil {
				return err
			}
			html, err := renderer.PageBytes(p, false)
			if err != nil {
				return err
			}
			return theme.HighlightSource(out, string(html), "html", theme.DefaultSyntaxTheme(p.State.Theme))
		}

		if p.State.Empty() {
			fmt.Fprintln(out, headerStyle.Render(editor.EmptyPreviewTitle))
			fmt.Fprintln(out, labelStyle.Render(editor.EmptyPreviewHint))
			return nil
		}
		rendered, err := renderMarkdown(stateMarkdown(p.State))
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func init() {
	editCmd.Flags().String("title", "", "page title")
	editCmd.Flags().String("tagline", "", "page tagline")
	editCmd.Flags().String("body-file", "", `file holding the page body ("-" for stdin)`)
	editCmd.Flags().String("theme", "", "page theme: light, dark or custom")
	editCmd.Flags().Bool("reload", false, "read the project from the backend, bypassing the cache")
	previewCmd.Flags().Bool("html", false, "print the public page HTML")

	rootCmd.AddCommand(editCmd, previewCmd)
}
