// Package remotetest provides an in-memory remote.Backend for tests.
package remotetest

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/remote"
)

// Memory holds the projects, profiles and roles of every principal. As binds
// it to one caller. Hook, when set, runs before every operation and can
// block it or make it fail.
type Memory struct {
	mu       sync.Mutex
	nextID   model.ProjectID
	projects map[model.ProjectID]*model.Project
	profiles map[model.UserID]model.Profile
	roles    map[model.UserID]model.Role
	calls    map[string]int

	Hook func(ctx context.Context, op string) error
}

func NewMemory() *Memory {
	return &Memory{
		nextID:   1,
		projects: make(map[model.ProjectID]*model.Project),
		profiles: make(map[model.UserID]model.Profile),
		roles:    make(map[model.UserID]model.Role),
		calls:    make(map[string]int),
	}
}

// Calls returns how many times op ran, including failed runs.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// SetRole sets a role directly, bypassing the admin check.
func (m *Memory) SetRole(user model.UserID, role model.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[user] = role
}

func (m *Memory) As(principal model.UserID) remote.Backend {
	return &caller{m: m, principal: principal}
}

type caller struct {
	m         *Memory
	principal model.UserID
}

func (c *caller) enter(ctx context.Context, op string) error {
	c.m.mu.Lock()
	c.m.calls[op]++
	hook := c.m.Hook
	c.m.mu.Unlock()
	if hook != nil {
		return hook(ctx, op)
	}
	return nil
}

func clone(p *model.Project) *model.Project {
	cp := *p
	return &cp
}

// owned returns the project if the caller owns it. Callers hold m.mu.
func (c *caller) owned(id model.ProjectID) (*model.Project, error) {
	if c.principal.Anonymous() {
		return nil, model.ErrNotAuthorized
	}
	p, ok := c.m.projects[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if !p.OwnedBy(c.principal) {
		return nil, model.ErrNotAuthorized
	}
	return p, nil
}

func (c *caller) CreateProject(ctx context.Context, name string, description *string) (model.ProjectID, error) {
	if err := c.enter(ctx, "createProject"); err != nil {
		return 0, err
	}
	if c.principal.Anonymous() {
		return 0, model.ErrNotAuthorized
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	id := c.m.nextID
	c.m.nextID++
	now := time.Now()
	c.m.projects[id] = &model.Project{
		ID:            id,
		Owner:         c.principal,
		Name:          name,
		Description:   description,
		PublishStatus: model.StatusDraft,
		State:         model.DefaultState(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return id, nil
}

func (c *caller) UpdateProject(ctx context.Context, id model.ProjectID, name string, description *string) error {
	if err := c.enter(ctx, "updateProject"); err != nil {
		return err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	p, err := c.owned(id)
	if err != nil {
		return err
	}
	p.Name = name
	p.Description = description
	p.UpdatedAt = time.Now()
	return nil
}

func (c *caller) DeleteProject(ctx context.Context, id model.ProjectID) error {
	if err := c.enter(ctx, "deleteProject"); err != nil {
		return err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, err := c.owned(id); err != nil {
		return err
	}
	delete(c.m.projects, id)
	return nil
}

func (c *caller) GetProject(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	if err := c.enter(ctx, "getProject"); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	p, err := c.owned(id)
	if err != nil {
		return nil, err
	}
	return clone(p), nil
}

func (c *caller) GetProjectPublic(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	if err := c.enter(ctx, "getProjectPublic"); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	p, ok := c.m.projects[id]
	if !ok || !p.Published() {
		return nil, model.ErrNotFoundOrUnpublished
	}
	return clone(p), nil
}

func (c *caller) GetUserProjects(ctx context.Context, owner model.UserID) ([]model.Project, error) {
	if err := c.enter(ctx, "getUserProjects"); err != nil {
		return nil, err
	}
	if c.principal.Anonymous() || owner != c.principal {
		return nil, model.ErrNotAuthorized
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	out := []model.Project{}
	for _, p := range c.m.projects {
		if p.Owner == owner {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b model.Project) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (c *caller) ListPublicProjects(ctx context.Context) ([]model.Project, error) {
	if err := c.enter(ctx, "listPublicProjects"); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	out := []model.Project{}
	for _, p := range c.m.projects {
		if p.Published() {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b model.Project) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (c *caller) SaveProjectState(ctx context.Context, id model.ProjectID, state model.ProjectState) error {
	if err := c.enter(ctx, "saveProjectState"); err != nil {
		return err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	p, err := c.owned(id)
	if err != nil {
		return err
	}
	state.LastEdited = time.Now()
	p.State = state
	p.UpdatedAt = state.LastEdited
	return nil
}

func (c *caller) setStatus(ctx context.Context, op string, id model.ProjectID, status model.PublishStatus) error {
	if err := c.enter(ctx, op); err != nil {
		return err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	p, err := c.owned(id)
	if err != nil {
		return err
	}
	if p.PublishStatus == status {
		return nil
	}
	p.PublishStatus = status
	if status == model.StatusPublished && p.URLSlug == nil {
		slug := model.Slug(id)
		p.URLSlug = &slug
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (c *caller) PublishProject(ctx context.Context, id model.ProjectID) error {
	return c.setStatus(ctx, "publishProject", id, model.StatusPublished)
}

func (c *caller) UnpublishProject(ctx context.Context, id model.ProjectID) error {
	return c.setStatus(ctx, "unpublishProject", id, model.StatusDraft)
}

func (c *caller) GetCallerUserProfile(ctx context.Context) (*model.Profile, error) {
	if err := c.enter(ctx, "getCallerUserProfile"); err != nil {
		return nil, err
	}
	if c.principal.Anonymous() {
		return nil, model.ErrNotAuthorized
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	p, ok := c.m.profiles[c.principal]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *caller) GetUserProfile(ctx context.Context, user model.UserID) (*model.Profile, error) {
	if err := c.enter(ctx, "getUserProfile"); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	p, ok := c.m.profiles[user]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *caller) SaveCallerUserProfile(ctx context.Context, profile model.Profile) error {
	if err := c.enter(ctx, "saveCallerUserProfile"); err != nil {
		return err
	}
	if c.principal.Anonymous() {
		return model.ErrNotAuthorized
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.profiles[c.principal] = profile
	return nil
}

func (c *caller) role() model.Role {
	if c.principal.Anonymous() {
		return model.RoleGuest
	}
	if r, ok := c.m.roles[c.principal]; ok {
		return r
	}
	return model.RoleUser
}

func (c *caller) GetCallerUserRole(ctx context.Context) (model.Role, error) {
	if err := c.enter(ctx, "getCallerUserRole"); err != nil {
		return "", err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	return c.role(), nil
}

func (c *caller) AssignCallerUserRole(ctx context.Context, user model.UserID, role model.Role) error {
	if err := c.enter(ctx, "assignCallerUserRole"); err != nil {
		return err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.role() != model.RoleAdmin {
		return model.ErrNotAuthorized
	}
	c.m.roles[user] = role
	return nil
}

func (c *caller) IsCallerAdmin(ctx context.Context) (bool, error) {
	if err := c.enter(ctx, "isCallerAdmin"); err != nil {
		return false, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	return c.role() == model.RoleAdmin, nil
}
