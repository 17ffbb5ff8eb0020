package listview

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tsam/console/internal/domain"
)

// Mode is the state of a modal session.
type Mode int

const (
	ModeClosed Mode = iota
	ModeViewing
	ModeAdding
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeClosed:
		return "closed"
	case ModeViewing:
		return "view"
	case ModeAdding:
		return "add"
	case ModeEditing:
		return "update"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	// ErrInvalidTransition is returned when an editor operation is not
	// allowed in the session's current mode.
	ErrInvalidTransition = errors.New("listview: invalid modal transition")
	// ErrInvalidForm is returned by Submit when validation fails. No backend
	// call is made.
	ErrInvalidForm = errors.New("listview: form is invalid")
)

// Mutator is the write side of a resource backend.
type Mutator[E domain.Record] interface {
	Add(ctx context.Context, record E) (domain.Result[E], error)
	Update(ctx context.Context, record E) (domain.Result[E], error)
}

// ModalSession is the state of one open modal. The same Form instance lives
// through the view and edit modes of a session.
type ModalSession[E domain.Record] struct {
	ID       string   `json:"id"`
	Resource string   `json:"resource"`
	Mode     Mode     `json:"mode"`
	Form     *Form[E] `json:"form"`
}

// OpenAdd starts a session on an empty, editable form seeded with defaults.
func OpenAdd[E domain.Record](resource string, defaults E) *ModalSession[E] {
	return &ModalSession[E]{
		ID:       uuid.NewString(),
		Resource: resource,
		Mode:     ModeAdding,
		Form:     NewForm(defaults),
	}
}

// OpenView starts a session on a fresh form patched with record and
// disabled for read-only display.
func OpenView[E domain.Record](resource string, record E) *ModalSession[E] {
	f := NewForm(record)
	f.Disable()
	return &ModalSession[E]{
		ID:       uuid.NewString(),
		Resource: resource,
		Mode:     ModeViewing,
		Form:     f,
	}
}

// Edit switches a viewing session to editing. The form keeps its values.
func (s *ModalSession[E]) Edit() error {
	if s.Mode != ModeViewing {
		return fmt.Errorf("%w: edit from %s", ErrInvalidTransition, s.Mode)
	}
	s.Form.Enable()
	s.Mode = ModeEditing
	return nil
}

// Editable reports whether the session accepts input.
func (s *ModalSession[E]) Editable() bool {
	return s.Mode == ModeAdding || s.Mode == ModeEditing
}

// Submit validates the form and dispatches Update when the record has an id,
// Add otherwise. On success the session is closed. On failure the session
// stays in its mode so the user can correct and retry.
func (s *ModalSession[E]) Submit(ctx context.Context, v StructValidator, fields []string, m Mutator[E]) (domain.Result[E], error) {
	var zero domain.Result[E]
	if !s.Editable() {
		return zero, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, s.Mode)
	}
	if !s.Form.Validate(v) {
		s.Form.MarkAllTouched(fields)
		return zero, ErrInvalidForm
	}

	var (
		res domain.Result[E]
		err error
	)
	if domain.HasID(s.Form.Value) {
		res, err = m.Update(ctx, s.Form.Value)
	} else {
		res, err = m.Add(ctx, s.Form.Value)
	}
	if err != nil {
		return zero, err
	}
	s.Close()
	return res, nil
}

// Updating reports whether a submit would take the update path.
func (s *ModalSession[E]) Updating() bool {
	return domain.HasID(s.Form.Value)
}

// Close ends the session.
func (s *ModalSession[E]) Close() {
	s.Mode = ModeClosed
}
