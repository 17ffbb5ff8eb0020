// Package resource binds the TSAM entities to the generic list workflow:
// their search forms, edit forms, table columns and backend endpoints.
package resource

import (
	"github.com/tsam/console/internal/backend"
	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/listview"
)

// Kind is the control used to render an input.
type Kind string

const (
	KindText        Kind = "text"
	KindTextArea    Kind = "textarea"
	KindRichText    Kind = "richtext"
	KindNumber      Kind = "number"
	KindDecimal     Kind = "decimal"
	KindCheckbox    Kind = "checkbox"
	KindDate        Kind = "date"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	// KindBoolean is a tri-state any/yes/no select used by search forms.
	KindBoolean Kind = "boolean"
	// KindUpload is a url field filled by uploading a file.
	KindUpload Kind = "upload"
)

// Input describes one form control.
type Input struct {
	Name        string
	Label       string
	Kind        Kind
	Options     []string
	Upload      backend.UploadKind
	Required    bool
	Placeholder string
}

// Text returns the label, or the humanized name when none is set.
func (in Input) Text() string {
	if in.Label != "" {
		return in.Label
	}
	return listview.Humanize(in.Name)
}

func (in Input) numeric() bool { return in.Kind == KindNumber || in.Kind == KindDecimal }

// Column is one table column.
type Column[E any] struct {
	Label string
	Value func(E) string
}

// Definition declares a list screen for entity E searched by filter F.
type Definition[E domain.Record, F any] struct {
	// Name is the route segment and session namespace, e.g. "technologies".
	Name string
	// Title and Plural are the display names.
	Title  string
	Plural string
	// Endpoint is the backend path relative to the base url.
	Endpoint string
	Filters  []Input
	Fields   []Input
	Columns  []Column[E]
	// Defaults seeds the add form.
	Defaults func() E
}

// FilterNames returns the search form field names in declared order.
func (d Definition[E, F]) FilterNames() []string { return names(d.Filters) }

// FieldNames returns the edit form field names in declared order.
func (d Definition[E, F]) FieldNames() []string { return names(d.Fields) }

// Summary describes a record in one line using the first column.
func (d Definition[E, F]) Summary(rec E) string {
	if len(d.Columns) == 0 {
		return rec.RecordID()
	}
	return d.Columns[0].Value(rec)
}

func (d Definition[E, F]) field(name string) (Input, bool) {
	for _, in := range d.Fields {
		if in.Name == name {
			return in, true
		}
	}
	return Input{}, false
}

func (d Definition[E, F]) defaults() E {
	if d.Defaults == nil {
		var zero E
		return zero
	}
	return d.Defaults()
}

func names(inputs []Input) []string {
	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = in.Name
	}
	return out
}
