package listview

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
)

// Pagination-only field names. They travel with the search form on the wire
// but never make a search active.
const (
	FieldLimit  = "limit"
	FieldOffset = "offset"
)

// IsPaginationField reports whether name is a pagination-only field.
func IsPaginationField(name string) bool {
	return name == FieldLimit || name == FieldOffset
}

// SearchFormValue maps search form field names to their current values. A
// value is a string, a []string for multi-select fields, or any other scalar
// the filter encoder produced. nil and "" mean the field is empty.
type SearchFormValue map[string]any

// Clone returns a shallow copy of v with slice values copied.
func (v SearchFormValue) Clone() SearchFormValue {
	if v == nil {
		return nil
	}
	out := make(SearchFormValue, len(v))
	for k, val := range v {
		if s, ok := val.([]string); ok {
			val = slices.Clone(s)
		}
		out[k] = val
	}
	return out
}

// Values renders the form as URL query values, skipping empty fields.
func (v SearchFormValue) Values() url.Values {
	q := url.Values{}
	for k, val := range v {
		vals := valueStrings(val)
		if len(vals) > 0 {
			q[k] = vals
		}
	}
	return q
}

// FormValueFromQuery converts query values to a search form value. A key with
// a single value becomes a string, more values become a []string.
func FormValueFromQuery(q url.Values) SearchFormValue {
	out := make(SearchFormValue, len(q))
	for k, vals := range q {
		switch len(vals) {
		case 0:
		case 1:
			out[k] = vals[0]
		default:
			out[k] = slices.Clone(vals)
		}
	}
	return out
}

// FilterField is one active search criterion, shown as a removable chip.
type FilterField struct {
	Name   string
	Label  string
	Values []string
}

// Value joins the criterion values for display.
func (f FilterField) Value() string {
	switch len(f.Values) {
	case 0:
		return ""
	case 1:
		return f.Values[0]
	}
	out := f.Values[0]
	for _, s := range f.Values[1:] {
		out += ", " + s
	}
	return out
}

// Action tells the caller what to do after reducing a search form.
type Action int

const (
	// ActionFetchAll resets the search and fetches the unfiltered list.
	ActionFetchAll Action = iota
	// ActionNone leaves state untouched and performs no fetch.
	ActionNone
	// ActionSearch fetches the first page with the reduced criteria.
	ActionSearch
)

func (a Action) String() string {
	switch a {
	case ActionFetchAll:
		return "fetch-all"
	case ActionNone:
		return "none"
	case ActionSearch:
		return "search"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Reduction is the result of reducing a raw search form.
type Reduction struct {
	// Value is the sparse form value with empty fields removed.
	Value SearchFormValue
	// Fields lists the surviving criteria in display order.
	Fields []FilterField
	// Active is true when at least one non-pagination criterion survived.
	Active bool
	Action Action
}

// Chips returns the criteria that should be rendered as removable chips.
func (r Reduction) Chips() []FilterField {
	return Chips(r.Fields)
}

// Chips filters out pagination-only fields.
func Chips(fields []FilterField) []FilterField {
	out := make([]FilterField, 0, len(fields))
	for _, f := range fields {
		if !IsPaginationField(f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// Reduce drops empty fields from form, derives the filter criteria, and
// decides whether a search should run. order fixes the position of the
// fields it names. Remaining fields follow alphabetically.
func Reduce(form SearchFormValue, order []string) Reduction {
	value := make(SearchFormValue, len(form))
	for k, v := range form {
		if isEmptyValue(v) {
			continue
		}
		value[k] = v
	}

	fields := make([]FilterField, 0, len(value))
	active := false
	for _, name := range orderedKeys(value, order) {
		fields = append(fields, FilterField{
			Name:   name,
			Label:  Humanize(name),
			Values: valueStrings(value[name]),
		})
		if !IsPaginationField(name) {
			active = true
		}
	}

	red := Reduction{Value: value, Fields: fields, Active: active}
	switch {
	case len(fields) == 0:
		red.Action = ActionFetchAll
	case !active:
		red.Action = ActionNone
	default:
		red.Action = ActionSearch
	}
	return red
}

func orderedKeys(v SearchFormValue, order []string) []string {
	keys := make([]string, 0, len(v))
	seen := make(map[string]bool, len(v))
	for _, name := range order {
		if _, ok := v[name]; ok && !seen[name] {
			keys = append(keys, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(v)-len(keys))
	for k := range v {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// valueStrings normalizes a scalar or list value to a list of strings.
func valueStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e != nil {
				out = append(out, fmt.Sprint(e))
			}
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}
