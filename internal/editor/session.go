// Package editor keeps the in-memory drafts of projects being edited and
// tracks whether they differ from the last saved state.
package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/query"
)

var editorLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

var (
	ErrNothingToSave  = errors.New("nothing to save")
	ErrSaveInProgress = errors.New("save already in progress")
	ErrSessionClosed  = errors.New("edit session discarded")
)

type Status int

const (
	Clean Status = iota
	Dirty
	Saving
)

func (s Status) String() string {
	switch s {
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	}
	return "clean"
}

// Store is what a session needs from the project store.
type Store interface {
	Project(ctx context.Context, id model.ProjectID, opts ...query.FetchOption) (*model.Project, error)
	SaveProjectState(ctx context.Context, id model.ProjectID, state model.ProjectState) error
}

// Snapshot is a consistent copy of a session.
type Snapshot struct {
	ID       model.ProjectID
	Fields   model.ProjectState
	Baseline model.ProjectState
	Status   Status
	// Err is the failure of the last save, cleared by the next save or hydration.
	Err error
}

func (s Snapshot) Dirty() bool {
	return model.IsDirty(s.Fields, s.Baseline)
}

// Session is the draft of one project. Sessions share no state.
type Session struct {
	mu       sync.Mutex
	id       model.ProjectID
	store    Store
	fields   model.ProjectState
	baseline model.ProjectState
	status   Status
	err      error
	// epoch changes on every hydration so that a save that settles
	// afterwards is dropped.
	epoch uint64
	// saving is set while a remote save is unsettled, across hydrations.
	saving      bool
	savingEpoch uint64
	closed      bool
}

// NewSession starts a Clean session mirroring state.
func NewSession(id model.ProjectID, store Store, state model.ProjectState) *Session {
	return &Session{
		id:       id,
		store:    store,
		fields:   state,
		baseline: state,
		status:   Clean,
	}
}

// Open loads project id through the store and starts a session on it.
func Open(ctx context.Context, store Store, id model.ProjectID) (*Session, error) {
	p, err := store.Project(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewSession(id, store, p.State), nil
}

func (s *Session) ID() model.ProjectID {
	return s.id
}

// Hydrate replaces fields and baseline with state, discarding unsaved edits.
// A save still in flight keeps blocking new saves until it settles.
func (s *Session) Hydrate(state model.ProjectState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = state
	s.baseline = state
	s.status = Clean
	s.err = nil
	s.epoch++
	editorLogger.Debug().Stringer("project", s.id).Uint64("epoch", s.epoch).Msg("Session hydrated")
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{ID: s.id, Fields: s.fields, Baseline: s.baseline, Status: s.status, Err: s.err}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// recompute sets Clean or Dirty from the fields. A save in flight for the
// current epoch keeps the session in Saving. Callers hold s.mu.
func (s *Session) recompute() {
	if s.saving && s.savingEpoch == s.epoch {
		s.status = Saving
		return
	}
	if model.IsDirty(s.fields, s.baseline) {
		s.status = Dirty
	} else {
		s.status = Clean
	}
}

func (s *Session) edit(fn func(*model.ProjectState)) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.fields)
	s.recompute()
	return s.status
}

func (s *Session) SetTitle(v string) Status {
	return s.edit(func(st *model.ProjectState) { st.Title = v })
}

func (s *Session) SetTagline(v string) Status {
	return s.edit(func(st *model.ProjectState) { st.Tagline = v })
}

func (s *Session) SetBody(v string) Status {
	return s.edit(func(st *model.ProjectState) { st.Body = v })
}

func (s *Session) SetTheme(t model.Theme) (Status, error) {
	if !t.Valid() {
		return s.Status(), &model.ValidationError{Field: "theme", Err: model.ErrInvalidTheme}
	}
	return s.edit(func(st *model.ProjectState) { st.Theme = t }), nil
}

// Save pushes the current fields. It is only allowed from Dirty. The remote
// call outlives ctx: a caller that gives up gets ctx.Err() while the save
// settles in the background.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.saving:
		s.mu.Unlock()
		return ErrSaveInProgress
	case !model.IsDirty(s.fields, s.baseline):
		s.mu.Unlock()
		return ErrNothingToSave
	}
	saved, epoch := s.fields, s.epoch
	s.saving, s.savingEpoch = true, epoch
	s.status = Saving
	s.err = nil
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		err := s.store.SaveProjectState(context.WithoutCancel(ctx), s.id, saved)
		s.settle(epoch, saved, err)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) settle(epoch uint64, saved model.ProjectState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if s.closed || epoch != s.epoch {
		editorLogger.Debug().Err(err).Stringer("project", s.id).Msg("Dropping result of superseded save")
		return
	}

	s.status = Dirty
	if err != nil {
		s.err = err
		editorLogger.Warn().Err(err).Stringer("project", s.id).Msg("Save failed")
	} else {
		s.baseline = saved
		editorLogger.Debug().Stringer("project", s.id).Msg("Saved")
	}
	// Edits made while saving decide whether the session is clean.
	if !model.IsDirty(s.fields, s.baseline) {
		s.status = Clean
	}
}

// Discard closes the session. A save still in flight completes remotely
// but its result is dropped.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
