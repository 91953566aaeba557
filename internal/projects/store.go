// Package projects exposes the typed reads and mutations of one principal,
// served through the query cache.
package projects

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/query"
	"github.com/debemdeboas/microsites/internal/remote"
)

var storeLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	storeLogger = l
}

type Store struct {
	client *remote.Client
	cache  *query.Cache
}

func NewStore(client *remote.Client, cache *query.Cache) *Store {
	return &Store{client: client, cache: cache}
}

func (s *Store) Principal() model.UserID {
	return s.client.Principal()
}

func (s *Store) Cache() *query.Cache {
	return s.cache
}

func (s *Store) target(id model.ProjectID) query.Target {
	p := s.Principal()
	return query.Target{Principal: p, Owner: p, Project: id, User: p}
}

// mutate runs fn detached from the caller's cancellation and applies the
// effects of m once it succeeds. A caller that gives up gets ctx.Err(), but
// the remote call and its invalidation still complete.
func (s *Store) mutate(ctx context.Context, m query.Mutation, target query.Target, fn func(context.Context) error) error {
	done := make(chan error, 1)
	detached := context.WithoutCancel(ctx)

	go func() {
		err := fn(detached)
		if err == nil {
			s.cache.Apply(m, target)
		} else {
			storeLogger.Debug().Err(err).Str("mutation", string(m)).Msg("Mutation failed")
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		storeLogger.Debug().Str("mutation", string(m)).Msg("Caller left before the mutation settled")
		return ctx.Err()
	}
}

// --- Reads ---

// UserProjects lists the caller's projects. Anonymous callers get an empty
// list without a remote call.
func (s *Store) UserProjects(ctx context.Context, opts ...query.FetchOption) ([]model.Project, error) {
	p := s.Principal()
	if p.Anonymous() {
		return []model.Project{}, nil
	}
	return query.Fetch(ctx, s.cache, query.UserProjectsKey(p, p), func(ctx context.Context) ([]model.Project, error) {
		return s.client.GetUserProjects(ctx, p)
	}, opts...)
}

func (s *Store) Project(ctx context.Context, id model.ProjectID, opts ...query.FetchOption) (*model.Project, error) {
	return query.Fetch(ctx, s.cache, query.ProjectKey(s.Principal(), id), func(ctx context.Context) (*model.Project, error) {
		return s.client.GetProject(ctx, id)
	}, opts...)
}

func (s *Store) PublicProject(ctx context.Context, id model.ProjectID, opts ...query.FetchOption) (*model.Project, error) {
	return query.Fetch(ctx, s.cache, query.PublicProjectKey(id), func(ctx context.Context) (*model.Project, error) {
		return s.client.GetProjectPublic(ctx, id)
	}, opts...)
}

func (s *Store) PublicProjects(ctx context.Context, opts ...query.FetchOption) ([]model.Project, error) {
	return query.Fetch(ctx, s.cache, query.PublicProjectsKey(), func(ctx context.Context) ([]model.Project, error) {
		return s.client.ListPublicProjects(ctx)
	}, opts...)
}

// CallerProfile returns nil when the caller has not set up a profile.
func (s *Store) CallerProfile(ctx context.Context, opts ...query.FetchOption) (*model.Profile, error) {
	return query.Fetch(ctx, s.cache, query.CurrentUserProfileKey(s.Principal()), func(ctx context.Context) (*model.Profile, error) {
		return s.client.GetCallerUserProfile(ctx)
	}, opts...)
}

func (s *Store) UserProfile(ctx context.Context, user model.UserID, opts ...query.FetchOption) (*model.Profile, error) {
	return query.Fetch(ctx, s.cache, query.UserProfileKey(s.Principal(), user), func(ctx context.Context) (*model.Profile, error) {
		return s.client.GetUserProfile(ctx, user)
	}, opts...)
}

func (s *Store) CallerRole(ctx context.Context, opts ...query.FetchOption) (model.Role, error) {
	return query.Fetch(ctx, s.cache, query.CallerRoleKey(s.Principal()), func(ctx context.Context) (model.Role, error) {
		return s.client.GetCallerUserRole(ctx)
	}, opts...)
}

func (s *Store) IsCallerAdmin(ctx context.Context, opts ...query.FetchOption) (bool, error) {
	return query.Fetch(ctx, s.cache, query.CallerAdminKey(s.Principal()), func(ctx context.Context) (bool, error) {
		return s.client.IsCallerAdmin(ctx)
	}, opts...)
}

// --- Mutations ---

func (s *Store) CreateProject(ctx context.Context, name string, description *string) (model.ProjectID, error) {
	var id model.ProjectID
	err := s.mutate(ctx, query.CreateProject, s.target(0), func(ctx context.Context) error {
		var err error
		id, err = s.client.CreateProject(ctx, name, description)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) UpdateProject(ctx context.Context, id model.ProjectID, name string, description *string) error {
	return s.mutate(ctx, query.UpdateProject, s.target(id), func(ctx context.Context) error {
		return s.client.UpdateProject(ctx, id, name, description)
	})
}

func (s *Store) DeleteProject(ctx context.Context, id model.ProjectID) error {
	return s.mutate(ctx, query.DeleteProject, s.target(id), func(ctx context.Context) error {
		return s.client.DeleteProject(ctx, id)
	})
}

func (s *Store) SaveProjectState(ctx context.Context, id model.ProjectID, state model.ProjectState) error {
	return s.mutate(ctx, query.SaveProjectState, s.target(id), func(ctx context.Context) error {
		return s.client.SaveProjectState(ctx, id, state)
	})
}

func (s *Store) PublishProject(ctx context.Context, id model.ProjectID) error {
	return s.mutate(ctx, query.PublishProject, s.target(id), func(ctx context.Context) error {
		return s.client.PublishProject(ctx, id)
	})
}

func (s *Store) UnpublishProject(ctx context.Context, id model.ProjectID) error {
	return s.mutate(ctx, query.UnpublishProject, s.target(id), func(ctx context.Context) error {
		return s.client.UnpublishProject(ctx, id)
	})
}

func (s *Store) SaveCallerProfile(ctx context.Context, profile model.Profile) error {
	return s.mutate(ctx, query.SaveProfile, s.target(0), func(ctx context.Context) error {
		return s.client.SaveCallerUserProfile(ctx, profile)
	})
}

func (s *Store) AssignCallerRole(ctx context.Context, user model.UserID, role model.Role) error {
	return s.mutate(ctx, query.AssignRole, s.target(0), func(ctx context.Context) error {
		return s.client.AssignCallerUserRole(ctx, user, role)
	})
}
