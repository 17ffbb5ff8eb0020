package resource

import (
	"html/template"
	"net/url"

	"github.com/tsam/console/internal/listview"
)

// Info names a screen.
type Info struct {
	Name   string
	Title  string
	Plural string
}

// Path is the list page route of the screen.
func (i Info) Path() string { return "/" + i.Name }

// Field is an input bound to its current value.
type Field struct {
	Input
	Value    string
	Values   []string
	Error    string
	Disabled bool
	// HTML is the sanitized rendering of rich text.
	HTML template.HTML
}

// Checked reports whether a checkbox or boolean control is on.
func (f Field) Checked() bool { return f.Value == "true" }

// Selected reports whether opt is one of the field values.
func (f Field) Selected(opt string) bool {
	for _, v := range f.Values {
		if v == opt {
			return true
		}
	}
	return false
}

// Row is one table row.
type Row struct {
	ID    string
	Cells []string
}

// ListView is everything a list page renders.
type ListView struct {
	Info
	Columns    []string
	Rows       []Row
	Search     []Field
	Chips      []listview.FilterField
	IsSearched bool
	Page       listview.PageState
	Nav        listview.Nav
	Limits     []int
	Query      url.Values
}

// URL is the address bar location mirroring the view.
func (v *ListView) URL() string {
	if len(v.Query) == 0 {
		return v.Path()
	}
	return v.Path() + "?" + v.Query.Encode()
}

// QueryString is the encoded address bar query, without the leading "?".
func (v *ListView) QueryString() string { return v.Query.Encode() }

// ModalView is an open add, view or edit modal.
type ModalView struct {
	Info
	SessionID string
	Mode      listview.Mode
	Heading   string
	Fields    []Field
	Editable  bool
}

// CanEdit reports whether the modal offers the switch to edit mode.
func (m *ModalView) CanEdit() bool { return m.Mode == listview.ModeViewing }

// ConfirmView asks before deleting a record.
type ConfirmView struct {
	Info
	ID      string
	Summary string
}

// SubmitOutcome is the result of submitting a modal. Exactly one of Modal
// and List is set: Modal when the modal stays open, List once it closed.
type SubmitOutcome struct {
	Modal   *ModalView
	List    *ListView
	Message string
}
