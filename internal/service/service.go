// Package service implements the project service behind the HTTP API: owner
// checks, uniform public errors, idempotent publish and domain events.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/event"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/remote"
	"github.com/debemdeboas/microsites/internal/repository"
)

var serviceLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	serviceLogger = l
}

type Service struct {
	projects repository.ProjectRepository
	profiles repository.ProfileRepository
	roles    repository.RoleRepository

	bus    *event.Bus
	admins map[model.UserID]bool
}

type Option func(*Service)

// WithEvents publishes a domain event after every successful mutation.
func WithEvents(bus *event.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithAdmins grants the admin role to users that were never assigned one.
func WithAdmins(users ...model.UserID) Option {
	return func(s *Service) {
		for _, u := range users {
			if !u.Anonymous() {
				s.admins[u] = true
			}
		}
	}
}

func New(projects repository.ProjectRepository, profiles repository.ProfileRepository, roles repository.RoleRepository, opts ...Option) *Service {
	s := &Service{
		projects: projects,
		profiles: profiles,
		roles:    roles,
		admins:   make(map[model.UserID]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// As binds the service to one caller.
func (s *Service) As(principal model.UserID) remote.Backend {
	return &caller{s: s, principal: principal}
}

func (s *Service) emit(e event.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(e); err != nil {
		serviceLogger.Warn().Err(err).Str("type", string(e.Type)).Msg("Failed to publish event")
	}
}

type caller struct {
	s         *Service
	principal model.UserID
}

func (c *caller) log(op string) zerolog.Logger {
	return serviceLogger.With().Str("op", op).Str("principal", string(c.principal)).Logger()
}

func (c *caller) owned(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	if c.principal.Anonymous() {
		return nil, model.ErrNotAuthorized
	}
	p, err := c.s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(c.principal) {
		return nil, model.ErrNotAuthorized
	}
	return p, nil
}

func (c *caller) CreateProject(ctx context.Context, name string, description *string) (model.ProjectID, error) {
	if c.principal.Anonymous() {
		return 0, model.ErrNotAuthorized
	}
	if err := model.ValidateName(name); err != nil {
		return 0, err
	}

	id, err := c.s.projects.Create(ctx, c.principal, strings.TrimSpace(name), model.NormalizeDescription(description))
	if err != nil {
		return 0, err
	}

	l := c.log("createProject")
	l.Info().Stringer("project", id).Msg("Project created")
	c.s.emit(event.Event{Type: event.ProjectCreated, Project: id, User: c.principal})
	return id, nil
}

func (c *caller) UpdateProject(ctx context.Context, id model.ProjectID, name string, description *string) error {
	if err := model.ValidateName(name); err != nil {
		return err
	}
	p, err := c.owned(ctx, id)
	if err != nil {
		return err
	}
	if err := c.s.projects.Update(ctx, id, strings.TrimSpace(name), model.NormalizeDescription(description)); err != nil {
		return err
	}
	c.s.emit(event.Event{Type: event.ProjectUpdated, Project: id, User: c.principal, Published: p.Published()})
	return nil
}

func (c *caller) DeleteProject(ctx context.Context, id model.ProjectID) error {
	if _, err := c.owned(ctx, id); err != nil {
		return err
	}
	if err := c.s.projects.Delete(ctx, id); err != nil {
		return err
	}
	l := c.log("deleteProject")
	l.Info().Stringer("project", id).Msg("Project deleted")
	c.s.emit(event.Event{Type: event.ProjectDeleted, Project: id, User: c.principal})
	return nil
}

func (c *caller) GetProject(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	return c.owned(ctx, id)
}

func (c *caller) GetProjectPublic(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	p, err := c.s.projects.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !p.Published()) {
		return nil, model.ErrNotFoundOrUnpublished
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *caller) GetUserProjects(ctx context.Context, owner model.UserID) ([]model.Project, error) {
	if c.principal.Anonymous() || owner != c.principal {
		return nil, model.ErrNotAuthorized
	}
	return c.s.projects.ListByOwner(ctx, owner)
}

func (c *caller) ListPublicProjects(ctx context.Context) ([]model.Project, error) {
	return c.s.projects.ListPublished(ctx)
}

func (c *caller) SaveProjectState(ctx context.Context, id model.ProjectID, state model.ProjectState) error {
	if err := model.ValidateState(state); err != nil {
		return err
	}
	p, err := c.owned(ctx, id)
	if err != nil {
		return err
	}
	if _, err := c.s.projects.SaveState(ctx, id, state); err != nil {
		return err
	}
	c.s.emit(event.Event{Type: event.ProjectStateSaved, Project: id, User: c.principal, Published: p.Published()})
	return nil
}

func (c *caller) setStatus(ctx context.Context, op string, id model.ProjectID, status model.PublishStatus) error {
	if _, err := c.owned(ctx, id); err != nil {
		return err
	}
	changed, err := c.s.projects.SetStatus(ctx, id, status)
	if err != nil {
		return err
	}

	l := c.log(op)
	if !changed {
		l.Debug().Stringer("project", id).Msg("Already in requested state")
		return nil
	}
	l.Info().Stringer("project", id).Str("status", string(status)).Msg("Publish status changed")

	t := event.ProjectPublished
	if status == model.StatusDraft {
		t = event.ProjectUnpublished
	}
	c.s.emit(event.Event{Type: t, Project: id, User: c.principal, Published: status == model.StatusPublished})
	return nil
}

func (c *caller) PublishProject(ctx context.Context, id model.ProjectID) error {
	return c.setStatus(ctx, "publishProject", id, model.StatusPublished)
}

func (c *caller) UnpublishProject(ctx context.Context, id model.ProjectID) error {
	return c.setStatus(ctx, "unpublishProject", id, model.StatusDraft)
}

func (c *caller) GetCallerUserProfile(ctx context.Context) (*model.Profile, error) {
	if c.principal.Anonymous() {
		return nil, model.ErrNotAuthorized
	}
	return c.s.profiles.Get(ctx, c.principal)
}

func (c *caller) GetUserProfile(ctx context.Context, user model.UserID) (*model.Profile, error) {
	return c.s.profiles.Get(ctx, user)
}

func (c *caller) SaveCallerUserProfile(ctx context.Context, profile model.Profile) error {
	if c.principal.Anonymous() {
		return model.ErrNotAuthorized
	}
	if err := model.ValidateProfile(profile); err != nil {
		return err
	}
	profile.Name = strings.TrimSpace(profile.Name)
	if err := c.s.profiles.Save(ctx, c.principal, profile); err != nil {
		return err
	}
	c.s.emit(event.Event{Type: event.ProfileSaved, User: c.principal})
	return nil
}

func (c *caller) role(ctx context.Context) (model.Role, error) {
	if c.principal.Anonymous() {
		return model.RoleGuest, nil
	}
	r, ok, err := c.s.roles.Get(ctx, c.principal)
	if err != nil {
		return "", err
	}
	if ok {
		return r, nil
	}
	if c.s.admins[c.principal] {
		return model.RoleAdmin, nil
	}
	return model.RoleUser, nil
}

func (c *caller) GetCallerUserRole(ctx context.Context) (model.Role, error) {
	return c.role(ctx)
}

func (c *caller) AssignCallerUserRole(ctx context.Context, user model.UserID, role model.Role) error {
	if !role.Valid() {
		return &model.ValidationError{Field: "role", Err: model.ErrInvalidRole}
	}
	current, err := c.role(ctx)
	if err != nil {
		return err
	}
	if current != model.RoleAdmin {
		return model.ErrNotAuthorized
	}
	if err := c.s.roles.Set(ctx, user, role); err != nil {
		return err
	}
	l := c.log("assignCallerUserRole")
	l.Info().Str("user", string(user)).Str("role", string(role)).Msg("Role assigned")
	c.s.emit(event.Event{Type: event.RoleAssigned, User: user})
	return nil
}

func (c *caller) IsCallerAdmin(ctx context.Context) (bool, error) {
	r, err := c.role(ctx)
	if err != nil {
		return false, err
	}
	return r == model.RoleAdmin, nil
}
