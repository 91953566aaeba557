package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/microsites/internal/auth"
	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/editor"
	"github.com/debemdeboas/microsites/internal/logger"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/projects"
	"github.com/debemdeboas/microsites/internal/publish"
	"github.com/debemdeboas/microsites/internal/query"
	"github.com/debemdeboas/microsites/internal/remote"
	"github.com/debemdeboas/microsites/internal/render"
)

const envKeyFile = "MICROSITES_KEY"

var (
	cfgPath    string
	backendURL string
	principal  string
	keyFile    string
	verbose    bool

	cfg      *config.Config
	store    *projects.Store
	sessions *editor.Registry

	// newBackend is swapped out in tests.
	newBackend = httpBackend
)

// httpBackend talks to the server at the configured URL, signing requests
// when a principal is configured.
func httpBackend(cfg *config.Config) (remote.Backend, model.UserID, error) {
	p := model.UserID(cfg.Client.Principal)
	opts := []remote.HTTPOption{
		remote.WithTimeout(cfg.Client.Timeout),
		remote.WithHeaderName(cfg.Auth.HeaderName),
	}
	if !p.Anonymous() {
		key, err := auth.LoadPrivateKey(cfg.Client.KeyFile)
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, remote.WithIdentity(p, key))
	}
	return remote.NewHTTPBackend(cfg.Client.BackendURL, opts...), p, nil
}

func cacheOptions(cfg *config.Config) []query.CacheOption {
	opts := []query.CacheOption{query.WithPublicMaxAge(cfg.Cache.PublicMaxAge)}
	if cfg.Cache.MaxAge > 0 {
		for _, kind := range []query.Kind{
			query.KindProject,
			query.KindUserProjects,
			query.KindCurrentUserProfile,
			query.KindUserProfile,
			query.KindCallerRole,
			query.KindCallerAdmin,
		} {
			opts = append(opts, query.WithMaxAge(kind, cfg.Cache.MaxAge))
		}
	}
	return opts
}

func setLoggers(l zerolog.Logger) {
	remote.SetLogger(logger.Component(l, "remote"))
	query.SetLogger(logger.Component(l, "query"))
	projects.SetLogger(logger.Component(l, "projects"))
	editor.SetLogger(logger.Component(l, "editor"))
	publish.SetLogger(logger.Component(l, "publish"))
	render.SetLogger(logger.Component(l, "render"))
}

// applyFlags lets flags and the environment override the config file.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Client.BackendURL = backendURL
	}
	if flags.Changed("principal") {
		cfg.Client.Principal = principal
	}
	if v := os.Getenv(envKeyFile); v != "" {
		cfg.Client.KeyFile = v
	}
	if flags.Changed("key") {
		cfg.Client.KeyFile = keyFile
	}
}

var rootCmd = &cobra.Command{
	Use:   "microsite",
	Short: "Create, edit and publish single-page micro-sites",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig(cfgPath); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = config.AppConfig
		applyFlags(cmd)

		level := "warn"
		if verbose {
			level = "debug"
		}
		setLoggers(logger.NewWithWriter(level, cmd.ErrOrStderr()))

		backend, p, err := newBackend(cfg)
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", cfg.Client.BackendURL, err)
		}
		store = projects.NewStore(remote.NewClient(backend, p), query.NewCache(cacheOptions(cfg)...))
		sessions = editor.NewRegistry(store)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", config.DefaultConfigPath, "config file path")
	flags.StringVar(&backendURL, "backend", "", "backend URL (overrides client.backend_url)")
	flags.StringVar(&principal, "principal", "", "principal to act as (overrides client.principal)")
	flags.StringVar(&keyFile, "key", "", "Ed25519 private key file (overrides client.key_file)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log remote calls")
}

func controller() *publish.Controller {
	return publish.NewController(store, cfg.Site.BaseURL)
}
