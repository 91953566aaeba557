package editor

import (
	"context"
	"sync"

	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/query"
)

// Registry holds one session per project.
type Registry struct {
	store    Store
	sessions sync.Map
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Open returns the session of id, hydrated from a fresh read. An existing
// session is re-hydrated, which discards its unsaved edits.
func (r *Registry) Open(ctx context.Context, id model.ProjectID) (*Session, error) {
	fresh, err := Open(ctx, r.store, id)
	if err != nil {
		return nil, err
	}
	if existing, loaded := r.sessions.LoadOrStore(id, fresh); loaded {
		s := existing.(*Session)
		s.Hydrate(fresh.Snapshot().Baseline)
		return s, nil
	}
	return fresh, nil
}

// Reload forces a remote read and re-hydrates the session of id.
func (r *Registry) Reload(ctx context.Context, id model.ProjectID) (*Session, error) {
	p, err := r.store.Project(ctx, id, query.Force())
	if err != nil {
		return nil, err
	}
	s, ok := r.Get(id)
	if !ok {
		return r.Open(ctx, id)
	}
	s.Hydrate(p.State)
	return s, nil
}

func (r *Registry) Get(id model.ProjectID) (*Session, bool) {
	if s, ok := r.sessions.Load(id); ok {
		return s.(*Session), true
	}
	return nil, false
}

func (r *Registry) Discard(id model.ProjectID) {
	if s, ok := r.sessions.LoadAndDelete(id); ok {
		s.(*Session).Discard()
	}
}
