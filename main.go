package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/auth"
	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/db"
	"github.com/debemdeboas/microsites/internal/event"
	"github.com/debemdeboas/microsites/internal/logger"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/pages"
	"github.com/debemdeboas/microsites/internal/render"
	"github.com/debemdeboas/microsites/internal/repository"
	"github.com/debemdeboas/microsites/internal/server"
	"github.com/debemdeboas/microsites/internal/service"
	"github.com/debemdeboas/microsites/internal/sse"
)

const (
	envConfigPath  = "MICROSITES_CONFIG"
	envClerkKey    = "CLERK_API"
	envS3KeyID     = "S3_ACCESS_KEY_ID"
	envS3KeySecret = "S3_SECRET_ACCESS_KEY"

	shutdownTimeout = 30 * time.Second
)

func setLoggers(l zerolog.Logger) {
	config.SetLogger(logger.Component(l, "config"))
	db.SetLogger(logger.Component(l, "db"))
	repository.SetLogger(logger.Component(l, "repository"))
	event.SetLogger(logger.Component(l, "event"))
	service.SetLogger(logger.Component(l, "service"))
	auth.SetLogger(logger.Component(l, "auth"))
	render.SetLogger(logger.Component(l, "render"))
	pages.SetLogger(logger.Component(l, "pages"))
	server.SetLogger(logger.Component(l, "server"))
}

func newAuthProvider(cfg *config.Config, profiles auth.ProfileSaver) (auth.AuthProvider, error) {
	switch cfg.Auth.Type {
	case config.AuthTypeClerk:
		key := os.Getenv(envClerkKey)
		if key == "" {
			return nil, fmt.Errorf("%s is required for %s auth", envClerkKey, config.AuthTypeClerk)
		}
		return auth.NewClerkAuthProvider(key, profiles), nil
	default:
		provider, err := auth.NewEd25519AuthProvider(cfg.Auth.Keys, cfg.Auth.HeaderName)
		if err != nil {
			return nil, fmt.Errorf(config.ErrCreateProviderFmt, err)
		}
		return provider, nil
	}
}

// newPageStore returns nil when published pages are only served live.
func newPageStore(ctx context.Context, cfg *config.Config) (repository.PageStore, error) {
	switch cfg.Pages.Store {
	case config.PagesStoreFS:
		return repository.NewFSPageStore(cfg.Pages.Dir), nil
	case config.PagesStoreS3:
		return repository.NewS3PageStore(ctx, repository.S3Options{
			Bucket:          cfg.Pages.Bucket,
			Endpoint:        cfg.Pages.Endpoint,
			Region:          cfg.Pages.Region,
			AccessKeyID:     os.Getenv(envS3KeyID),
			AccessKeySecret: os.Getenv(envS3KeySecret),
		})
	}
	return nil, nil
}

func adminsOf(cfg *config.Config) []model.UserID {
	admins := make([]model.UserID, 0, len(cfg.Auth.Admins))
	for _, a := range cfg.Auth.Admins {
		admins = append(admins, model.UserID(a))
	}
	return admins
}

func run(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	database := db.NewSQLite(cfg.Database.Path)
	if err := database.InitDB(); err != nil {
		return fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
	}
	defer database.Close()

	projects := repository.NewDBProjectRepository(database)
	profiles := repository.NewDBProfileRepository(database)
	roles := repository.NewDBRoleRepository(database)

	bus := event.NewBus()
	defer bus.Close()

	svc := service.New(projects, profiles, roles,
		service.WithEvents(bus),
		service.WithAdmins(adminsOf(cfg)...),
	)

	provider, err := newAuthProvider(cfg, profiles)
	if err != nil {
		return err
	}

	renderer, err := pages.NewRenderer(cfg.Site.Name)
	if err != nil {
		return err
	}

	clients := sse.NewSSEClients()
	stopClients, err := clients.Listen(bus)
	if err != nil {
		return err
	}
	defer stopClients()

	store, err := newPageStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		mirror := pages.NewMirror(renderer, projects, store)
		if err := mirror.SyncAll(ctx); err != nil {
			l.Warn().Err(err).Msg("Initial page sync incomplete")
		}
		stopMirror, err := mirror.Listen(bus)
		if err != nil {
			return err
		}
		defer stopMirror()
	}

	srv := server.New(svc, renderer,
		server.WithAuthProvider(provider),
		server.WithClients(clients),
	)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	l.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := godotenv.Load(config.DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", config.DefaultEnvFile, err)
	}

	path := os.Getenv(envConfigPath)
	if path == "" {
		path = config.DefaultConfigPath
	}
	if err := config.LoadConfig(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	l := logger.New(config.AppConfig.Logging.Level)
	setLoggers(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.AppConfig, l); err != nil {
		l.Fatal().Err(err).Msg("Server stopped")
	}
	l.Info().Msg("Server stopped")
}
