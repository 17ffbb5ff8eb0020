package listview

// StructValidator validates a struct and returns its field errors keyed by
// field name. A nil map means the struct is valid.
type StructValidator interface {
	Struct(s any) map[string]string
}

// Form is the editable state bound to a modal: the record value, whether the
// controls are read-only, which controls were touched, and field errors.
type Form[E any] struct {
	Value    E                 `json:"value"`
	Disabled bool              `json:"disabled"`
	Touched  map[string]bool   `json:"touched,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// NewForm returns an enabled form holding value.
func NewForm[E any](value E) *Form[E] {
	return &Form[E]{Value: value}
}

// Patch replaces the form value and clears previous validation state.
func (f *Form[E]) Patch(value E) {
	f.Value = value
	f.Touched = nil
	f.Errors = nil
}

func (f *Form[E]) Disable() { f.Disabled = true }

func (f *Form[E]) Enable() { f.Disabled = false }

// MarkAllTouched flags every named control as touched so its errors render.
func (f *Form[E]) MarkAllTouched(fields []string) {
	if f.Touched == nil {
		f.Touched = make(map[string]bool, len(fields))
	}
	for _, name := range fields {
		f.Touched[name] = true
	}
}

// Validate runs v over the form value and records the field errors.
func (f *Form[E]) Validate(v StructValidator) bool {
	if v == nil {
		f.Errors = nil
		return true
	}
	f.Errors = v.Struct(&f.Value)
	return len(f.Errors) == 0
}

// Valid reports whether the last validation found no errors.
func (f *Form[E]) Valid() bool { return len(f.Errors) == 0 }

// Error returns the message for a touched field.
func (f *Form[E]) Error(field string) string {
	if !f.Touched[field] {
		return ""
	}
	return f.Errors[field]
}
