// Package remote is the typed facade over the project service. A Backend is
// bound to one caller identity; Client adds local validation, error
// classification and logging on top of any Backend.
package remote

import (
	"context"

	"github.com/debemdeboas/microsites/internal/model"
)

// Backend is one method per remote capability. Implementations report
// failures with the error taxonomy of package model where they can; Client
// classifies anything else as a transport failure.
type Backend interface {
	CreateProject(ctx context.Context, name string, description *string) (model.ProjectID, error)
	UpdateProject(ctx context.Context, id model.ProjectID, name string, description *string) error
	DeleteProject(ctx context.Context, id model.ProjectID) error
	// GetProject is owner-scoped.
	GetProject(ctx context.Context, id model.ProjectID) (*model.Project, error)
	// GetProjectPublic only returns published projects. Every other outcome
	// is model.ErrNotFoundOrUnpublished.
	GetProjectPublic(ctx context.Context, id model.ProjectID) (*model.Project, error)
	GetUserProjects(ctx context.Context, owner model.UserID) ([]model.Project, error)
	ListPublicProjects(ctx context.Context) ([]model.Project, error)
	// SaveProjectState replaces the whole state.
	SaveProjectState(ctx context.Context, id model.ProjectID, state model.ProjectState) error
	PublishProject(ctx context.Context, id model.ProjectID) error
	UnpublishProject(ctx context.Context, id model.ProjectID) error
	// GetCallerUserProfile returns nil when the caller has no profile yet.
	GetCallerUserProfile(ctx context.Context) (*model.Profile, error)
	GetUserProfile(ctx context.Context, user model.UserID) (*model.Profile, error)
	SaveCallerUserProfile(ctx context.Context, profile model.Profile) error
	GetCallerUserRole(ctx context.Context) (model.Role, error)
	AssignCallerUserRole(ctx context.Context, user model.UserID, role model.Role) error
	IsCallerAdmin(ctx context.Context) (bool, error)
}
