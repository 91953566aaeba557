// Command migrate imports a directory of markdown files as projects.
//
// Each file may start with a %%% TOML block. Its title names the project
// and fills the page title; tagline, description, theme and publish are
// taken from the block as well. Files without a block become a project
// named after the file holding the whole file as body.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/db"
	"github.com/debemdeboas/microsites/internal/logger"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/repository"
	"github.com/debemdeboas/microsites/internal/util"
)

// projectFromFile builds the name, description, state and status of the
// project imported from a file called name holding content.
func projectFromFile(name string, content []byte) (string, *string, model.ProjectState, model.PublishStatus, error) {
	title := strings.TrimSuffix(name, filepath.Ext(name))
	state := model.DefaultState()
	status := model.StatusDraft

	fm, err := util.GetFrontMatter(content)
	if err != nil {
		state.Body = string(content)
		return title, nil, state, status, nil
	}

	if fm.Title != "" {
		title = fm.Title
	}
	state.Title = title
	state.Tagline = fm.Tagline
	state.Body = fm.Body
	if fm.Theme != "" {
		if state.Theme, err = model.ParseTheme(fm.Theme); err != nil {
			return "", nil, state, status, err
		}
	}
	if fm.Publish {
		status = model.StatusPublished
	}
	return title, model.NormalizeDescription(&fm.Description), state, status, nil
}

// importFile creates one project owned by owner from the file at path.
func importFile(ctx context.Context, repo repository.ProjectRepository, owner model.UserID, path string) (model.ProjectID, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	name, desc, state, status, err := projectFromFile(filepath.Base(path), content)
	if err != nil {
		return 0, err
	}
	if err := model.ValidateName(name); err != nil {
		return 0, err
	}

	id, err := repo.Create(ctx, owner, strings.TrimSpace(name), desc)
	if err != nil {
		return 0, err
	}
	if _, err := repo.SaveState(ctx, id, state); err != nil {
		return id, err
	}
	if status == model.StatusPublished {
		if _, err := repo.SetStatus(ctx, id, status); err != nil {
			return id, err
		}
	}
	return id, nil
}

// importDir imports every .md file of dir and returns how many succeeded.
func importDir(ctx context.Context, l zerolog.Logger, repo repository.ProjectRepository, owner model.UserID, dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	imported := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}
		id, err := importFile(ctx, repo, owner, filepath.Join(dir, file.Name()))
		if err != nil {
			l.Error().Err(err).Str("file", file.Name()).Msg("Failed to import file")
			continue
		}
		l.Info().Str("file", file.Name()).Stringer("project_id", id).Msg("Imported file")
		imported++
	}
	return imported, nil
}

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import markdown files as projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		dir, _ := flags.GetString("path")
		owner, _ := flags.GetString("owner-id")
		cfgPath, _ := flags.GetString("config")

		if err := config.LoadConfig(cfgPath); err != nil {
			return err
		}
		dbPath := config.AppConfig.Database.Path
		if flags.Changed("db") {
			dbPath, _ = flags.GetString("db")
		}

		l := logger.NewWithWriter(config.AppConfig.Logging.Level, cmd.ErrOrStderr())
		repository.SetLogger(logger.Component(l, "repository"))

		sqlite := db.NewSQLite(dbPath)
		if err := sqlite.InitDB(); err != nil {
			return fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
		}
		defer sqlite.Close()

		n, err := importDir(cmd.Context(), l, repository.NewDBProjectRepository(sqlite), model.UserID(owner), dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d projects\n", n)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("path", "", "directory containing .md files")
	flags.String("owner-id", "", "owner of the imported projects")
	flags.String("config", config.DefaultConfigPath, "config file path")
	flags.String("db", "", "database path (overrides database.path)")
	rootCmd.MarkFlagRequired("path")
	rootCmd.MarkFlagRequired("owner-id")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
