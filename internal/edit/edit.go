// Package edit holds the single-record inline editing state of a list view.
package edit

import (
	"context"
	"errors"

	"trackflow-cli/internal/model"
)

var (
	ErrNotEditing   = errors.New("no record is being edited")
	ErrSaveInFlight = errors.New("a save is already in progress")
)

// State is either Viewing or Editing.
type State[R any] interface {
	isState()
}

type Viewing[R any] struct{}

// Editing holds a full copy of the record being edited. Only Working changes
// while editing; the list keeps showing the server's copy for every other row.
type Editing[R any] struct {
	ID      model.ID
	Working R
}

func (Viewing[R]) isState() {}
func (Editing[R]) isState() {}

// Setter changes one named field of a working copy, e.g. (*model.Lead).Set.
type Setter[R any] func(rec *R, field, value string) error

// Editor is the per-list controller. At most one record is edited at a time.
type Editor[R any] struct {
	set     Setter[R]
	state   State[R]
	pending bool
}

func New[R any](set Setter[R]) *Editor[R] {
	return &Editor[R]{set: set, state: Viewing[R]{}}
}

func (e *Editor[R]) State() State[R] { return e.state }

func (e *Editor[R]) Current() (Editing[R], bool) {
	ed, ok := e.state.(Editing[R])
	return ed, ok
}

func (e *Editor[R]) IsEditing(id model.ID) bool {
	ed, ok := e.Current()
	return ok && ed.ID == id
}

// Begin starts editing rec. An edit already in progress is dropped without saving;
// the dropped state is returned so callers can tell.
func (e *Editor[R]) Begin(id model.ID, rec R) (dropped Editing[R], hadPrior bool) {
	dropped, hadPrior = e.Current()
	e.state = Editing[R]{ID: id, Working: rec}
	e.pending = false
	return dropped, hadPrior
}

// Change sets one field of the working copy. The rest of the copy is untouched,
// and a rejected value leaves the field as it was.
func (e *Editor[R]) Change(field, value string) error {
	ed, ok := e.Current()
	if !ok {
		return ErrNotEditing
	}
	working := ed.Working
	if err := e.set(&working, field, value); err != nil {
		return err
	}
	e.state = Editing[R]{ID: ed.ID, Working: working}
	return nil
}

// Cancel discards the working copy.
func (e *Editor[R]) Cancel() {
	e.state = Viewing[R]{}
	e.pending = false
}

// Pending reports whether a save has been started and not yet resolved.
func (e *Editor[R]) Pending() bool { return e.pending }

// StartSave marks the current edit as being saved and returns what to send.
func (e *Editor[R]) StartSave() (Editing[R], error) {
	ed, ok := e.Current()
	if !ok {
		return Editing[R]{}, ErrNotEditing
	}
	if e.pending {
		return Editing[R]{}, ErrSaveInFlight
	}
	e.pending = true
	return ed, nil
}

// Saved resolves a successful save of id. It only leaves Editing when that same
// record is still the one being edited.
func (e *Editor[R]) Saved(id model.ID) {
	if e.IsEditing(id) {
		e.state = Viewing[R]{}
		e.pending = false
	}
}

// Failed resolves a failed save of id; the working copy stays so the user can retry.
func (e *Editor[R]) Failed(id model.ID) {
	if e.IsEditing(id) {
		e.pending = false
	}
}

// Save runs update synchronously with the working copy.
func (e *Editor[R]) Save(ctx context.Context, update func(ctx context.Context, id model.ID, working R) error) error {
	ed, err := e.StartSave()
	if err != nil {
		return err
	}
	if err := update(ctx, ed.ID, ed.Working); err != nil {
		e.Failed(ed.ID)
		return err
	}
	e.Saved(ed.ID)
	return nil
}
