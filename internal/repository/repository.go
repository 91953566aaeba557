// Package repository persists projects, profiles and roles, and mirrors
// published pages to a page store.
package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/model"
)

var repoLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

// ProjectRepository stores projects without any authorization. Missing rows
// are reported as model.ErrNotFound.
type ProjectRepository interface {
	Create(ctx context.Context, owner model.UserID, name string, description *string) (model.ProjectID, error)
	Get(ctx context.Context, id model.ProjectID) (*model.Project, error)
	Update(ctx context.Context, id model.ProjectID, name string, description *string) error
	Delete(ctx context.Context, id model.ProjectID) error
	ListByOwner(ctx context.Context, owner model.UserID) ([]model.Project, error)
	ListPublished(ctx context.Context) ([]model.Project, error)
	// SaveState replaces the state and stamps its LastEdited.
	SaveState(ctx context.Context, id model.ProjectID, state model.ProjectState) (time.Time, error)
	// SetStatus returns false when the project was already in status.
	SetStatus(ctx context.Context, id model.ProjectID, status model.PublishStatus) (bool, error)
}

type ProfileRepository interface {
	// Get returns nil when user has no profile.
	Get(ctx context.Context, user model.UserID) (*model.Profile, error)
	Save(ctx context.Context, user model.UserID, profile model.Profile) error
}

type RoleRepository interface {
	// Get reports false when no role was ever assigned to user.
	Get(ctx context.Context, user model.UserID) (model.Role, bool, error)
	Set(ctx context.Context, user model.UserID, role model.Role) error
}

// PageStore mirrors rendered public pages, keyed by slug.
type PageStore interface {
	Put(ctx context.Context, slug string, page []byte) error
	Delete(ctx context.Context, slug string) error
}
