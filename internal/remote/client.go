package remote

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/model"
)

var remoteLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	remoteLogger = l
}

// Client is the facade the rest of the engine talks to. It never retries.
type Client struct {
	backend   Backend
	principal model.UserID
}

var _ Backend = (*Client)(nil)

// NewClient wraps backend for principal. The empty principal is anonymous.
func NewClient(backend Backend, principal model.UserID) *Client {
	return &Client{backend: backend, principal: principal}
}

func (c *Client) Principal() model.UserID {
	return c.principal
}

// classify maps err into the model taxonomy. Unknown failures become
// transport errors that keep the cause.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case model.IsValidation(err),
		errors.Is(err, model.ErrNotAuthorized),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrNotFoundOrUnpublished),
		errors.Is(err, model.ErrTransport):
		return err
	}
	return &model.TransportError{Op: op, Err: err}
}

func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := classify(op, fn(ctx))

	ev := remoteLogger.Debug()
	if err != nil {
		ev = remoteLogger.Warn().Err(err)
	}
	ev.Str("op", op).
		Str("principal", string(c.principal)).
		Dur("took", time.Since(start)).
		Msg("Remote call")
	return err
}

func (c *Client) CreateProject(ctx context.Context, name string, description *string) (model.ProjectID, error) {
	if err := model.ValidateName(name); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	description = model.NormalizeDescription(description)

	var id model.ProjectID
	err := c.call(ctx, "createProject", func(ctx context.Context) error {
		var err error
		id, err = c.backend.CreateProject(ctx, name, description)
		return err
	})
	return id, err
}

func (c *Client) UpdateProject(ctx context.Context, id model.ProjectID, name string, description *string) error {
	if err := model.ValidateName(name); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	description = model.NormalizeDescription(description)

	return c.call(ctx, "updateProject", func(ctx context.Context) error {
		return c.backend.UpdateProject(ctx, id, name, description)
	})
}

func (c *Client) DeleteProject(ctx context.Context, id model.ProjectID) error {
	return c.call(ctx, "deleteProject", func(ctx context.Context) error {
		return c.backend.DeleteProject(ctx, id)
	})
}

func (c *Client) GetProject(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	var p *model.Project
	err := c.call(ctx, "getProject", func(ctx context.Context) error {
		var err error
		p, err = c.backend.GetProject(ctx, id)
		return err
	})
	return p, err
}

func (c *Client) GetProjectPublic(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	var p *model.Project
	err := c.call(ctx, "getProjectPublic", func(ctx context.Context) error {
		var err error
		p, err = c.backend.GetProjectPublic(ctx, id)
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrNotAuthorized) {
			return model.ErrNotFoundOrUnpublished
		}
		if err == nil && (p == nil || !p.Published()) {
			p = nil
			return model.ErrNotFoundOrUnpublished
		}
		return err
	})
	return p, err
}

func (c *Client) GetUserProjects(ctx context.Context, owner model.UserID) ([]model.Project, error) {
	var ps []model.Project
	err := c.call(ctx, "getUserProjects", func(ctx context.Context) error {
		var err error
		ps, err = c.backend.GetUserProjects(ctx, owner)
		return err
	})
	return ps, err
}

func (c *Client) ListPublicProjects(ctx context.Context) ([]model.Project, error) {
	var ps []model.Project
	err := c.call(ctx, "listPublicProjects", func(ctx context.Context) error {
		var err error
		ps, err = c.backend.ListPublicProjects(ctx)
		return err
	})
	return ps, err
}

func (c *Client) SaveProjectState(ctx context.Context, id model.ProjectID, state model.ProjectState) error {
	if err := model.ValidateState(state); err != nil {
		return err
	}
	return c.call(ctx, "saveProjectState", func(ctx context.Context) error {
		return c.backend.SaveProjectState(ctx, id, state)
	})
}

func (c *Client) PublishProject(ctx context.Context, id model.ProjectID) error {
	return c.call(ctx, "publishProject", func(ctx context.Context) error {
		return c.backend.PublishProject(ctx, id)
	})
}

func (c *Client) UnpublishProject(ctx context.Context, id model.ProjectID) error {
	return c.call(ctx, "unpublishProject", func(ctx context.Context) error {
		return c.backend.UnpublishProject(ctx, id)
	})
}

func (c *Client) GetCallerUserProfile(ctx context.Context) (*model.Profile, error) {
	var p *model.Profile
	err := c.call(ctx, "getCallerUserProfile", func(ctx context.Context) error {
		var err error
		p, err = c.backend.GetCallerUserProfile(ctx)
		return err
	})
	return p, err
}

func (c *Client) GetUserProfile(ctx context.Context, user model.UserID) (*model.Profile, error) {
	var p *model.Profile
	err := c.call(ctx, "getUserProfile", func(ctx context.Context) error {
		var err error
		p, err = c.backend.GetUserProfile(ctx, user)
		return err
	})
	return p, err
}

func (c *Client) SaveCallerUserProfile(ctx context.Context, profile model.Profile) error {
	if err := model.ValidateProfile(profile); err != nil {
		return err
	}
	profile.Name = strings.TrimSpace(profile.Name)

	return c.call(ctx, "saveCallerUserProfile", func(ctx context.Context) error {
		return c.backend.SaveCallerUserProfile(ctx, profile)
	})
}

func (c *Client) GetCallerUserRole(ctx context.Context) (model.Role, error) {
	var r model.Role
	err := c.call(ctx, "getCallerUserRole", func(ctx context.Context) error {
		var err error
		r, err = c.backend.GetCallerUserRole(ctx)
		return err
	})
	return r, err
}

func (c *Client) AssignCallerUserRole(ctx context.Context, user model.UserID, role model.Role) error {
	if !role.Valid() {
		return &model.ValidationError{Field: "role", Err: model.ErrInvalidRole}
	}
	return c.call(ctx, "assignCallerUserRole", func(ctx context.Context) error {
		return c.backend.AssignCallerUserRole(ctx, user, role)
	})
}

func (c *Client) IsCallerAdmin(ctx context.Context) (bool, error) {
	var admin bool
	err := c.call(ctx, "isCallerAdmin", func(ctx context.Context) error {
		var err error
		admin, err = c.backend.IsCallerAdmin(ctx)
		return err
	})
	return admin, err
}
