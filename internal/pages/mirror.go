package pages

import (
	"context"
	"errors"
	"time"

	"github.com/debemdeboas/microsites/internal/event"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/repository"
)

const syncTimeout = 30 * time.Second

// Mirror keeps a page store in step with the published projects.
type Mirror struct {
	renderer *Renderer
	projects repository.ProjectRepository
	store    repository.PageStore
}

func NewMirror(renderer *Renderer, projects repository.ProjectRepository, store repository.PageStore) *Mirror {
	return &Mirror{renderer: renderer, projects: projects, store: store}
}

// Sync uploads the page of id when it is published and removes it otherwise.
// It reads the current project, so it does not depend on event order.
func (m *Mirror) Sync(ctx context.Context, id model.ProjectID) error {
	l := pagesLogger.With().Stringer("project", id).Logger()

	p, err := m.projects.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !p.Published()) {
		l.Debug().Msg("Removing mirrored page")
		return m.store.Delete(ctx, model.Slug(id))
	}
	if err != nil {
		return err
	}

	page, err := m.renderer.PageBytes(p, false)
	if err != nil {
		return err
	}

	slug := model.Slug(id)
	if p.URLSlug != nil {
		slug = *p.URLSlug
	}
	l.Debug().Str("slug", slug).Msg("Mirroring page")
	return m.store.Put(ctx, slug, page)
}

// SyncAll mirrors every published project.
func (m *Mirror) SyncAll(ctx context.Context) error {
	published, err := m.projects.ListPublished(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range published {
		if err := m.Sync(ctx, p.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Listen syncs every project whose public page changes.
func (m *Mirror) Listen(bus *event.Bus) (func(), error) {
	return bus.Subscribe(func(e event.Event) {
		if !e.PublicChange() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		if err := m.Sync(ctx, e.Project); err != nil {
			pagesLogger.Error().Err(err).Stringer("project", e.Project).Msg("Failed to mirror page")
		}
	})
}
