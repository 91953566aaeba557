// Package publish drives the draft and published states of projects and
// derives their public URLs.
package publish

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/query"
)

var publishLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	publishLogger = l
}

var ErrTransitionInProgress = errors.New("publish transition already in progress")

type Store interface {
	Project(ctx context.Context, id model.ProjectID, opts ...query.FetchOption) (*model.Project, error)
	PublishProject(ctx context.Context, id model.ProjectID) error
	UnpublishProject(ctx context.Context, id model.ProjectID) error
}

// Controller allows one transition per project at a time. Transitions to
// the state a project is already in succeed: the remote service treats them
// as no-ops, so the controller always asks it rather than trusting a cached
// status.
type Controller struct {
	store   Store
	baseURL string

	mu       sync.Mutex
	inFlight map[model.ProjectID]struct{}
}

func NewController(store Store, baseURL string) *Controller {
	return &Controller{
		store:    store,
		baseURL:  strings.TrimRight(baseURL, "/"),
		inFlight: make(map[model.ProjectID]struct{}),
	}
}

func (c *Controller) begin(id model.ProjectID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

func (c *Controller) end(id model.ProjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, id)
}

func (c *Controller) Status(ctx context.Context, id model.ProjectID, opts ...query.FetchOption) (model.PublishStatus, error) {
	p, err := c.store.Project(ctx, id, opts...)
	if err != nil {
		return "", err
	}
	return p.PublishStatus, nil
}

func (c *Controller) Publish(ctx context.Context, id model.ProjectID) error {
	return c.transition(ctx, id, model.StatusPublished)
}

func (c *Controller) Unpublish(ctx context.Context, id model.ProjectID) error {
	return c.transition(ctx, id, model.StatusDraft)
}

// Toggle moves the project to the other state and returns the new one.
func (c *Controller) Toggle(ctx context.Context, id model.ProjectID) (model.PublishStatus, error) {
	current, err := c.Status(ctx, id, query.Force())
	if err != nil {
		return "", err
	}
	target := model.StatusPublished
	if current == model.StatusPublished {
		target = model.StatusDraft
	}
	if err := c.transition(ctx, id, target); err != nil {
		return current, err
	}
	return target, nil
}

func (c *Controller) transition(ctx context.Context, id model.ProjectID, target model.PublishStatus) error {
	if !c.begin(id) {
		return ErrTransitionInProgress
	}
	defer c.end(id)

	l := publishLogger.With().Stringer("project", id).Str("target", string(target)).Logger()

	var err error
	if target == model.StatusPublished {
		err = c.store.PublishProject(ctx, id)
	} else {
		err = c.store.UnpublishProject(ctx, id)
	}
	if err != nil {
		l.Warn().Err(err).Msg("Transition failed")
		return err
	}
	l.Info().Msg("Transition complete")
	return nil
}

// PublicURL is where project id is served once published.
func (c *Controller) PublicURL(id model.ProjectID) string {
	return c.baseURL + model.PublicPath(id)
}

// ShareURL returns the public URL only while the project is published.
func (c *Controller) ShareURL(ctx context.Context, id model.ProjectID) (string, bool, error) {
	p, err := c.store.Project(ctx, id)
	if err != nil {
		return "", false, err
	}
	if !p.Published() {
		return "", false, nil
	}
	if p.URLSlug != nil {
		return c.baseURL + "/p/" + *p.URLSlug, true, nil
	}
	return c.PublicURL(id), true, nil
}
