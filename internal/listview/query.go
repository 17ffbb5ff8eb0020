package listview

import (
	"net/url"
	"strconv"
)

// Limits holds the page size policy of a list screen.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits is the page size policy used when none is configured.
var DefaultLimits = Limits{Default: DefaultLimit, Max: MaxLimit}

func (l Limits) normalized() Limits {
	if l.Max <= 0 {
		l.Max = MaxLimit
	}
	l.Default = ClampLimit(l.Default, l.Max)
	return l
}

// ParseQuery reads the managed filter fields and the page window from the
// address bar query. Keys outside fields are ignored. A malformed limit or
// offset falls back to its default.
func ParseQuery(q url.Values, fields []string, limits Limits) (SearchFormValue, PageState) {
	limits = limits.normalized()

	form := SearchFormValue{}
	for _, name := range fields {
		if IsPaginationField(name) {
			continue
		}
		vals := nonEmpty(q[name])
		switch len(vals) {
		case 0:
		case 1:
			form[name] = vals[0]
		default:
			form[name] = vals
		}
	}

	page := NewPageState(limits.Default)
	if n, err := strconv.Atoi(q.Get(FieldLimit)); err == nil && n > 0 {
		page.Limit = ClampLimit(n, limits.Max)
	}
	if n, err := strconv.Atoi(q.Get(FieldOffset)); err == nil && n > 0 {
		page.ChangePage(n + 1)
	}
	return form, page
}

// WriteQuery mirrors form and page into a copy of current. Managed keys (the
// given fields, the keys of form, limit and offset) are replaced or removed.
// Every other key is preserved. limit and offset are only written when they
// differ from the first page at the default size.
func WriteQuery(current url.Values, form SearchFormValue, page PageState, fields []string, limits Limits) url.Values {
	limits = limits.normalized()

	out := make(url.Values, len(current)+len(form)+2)
	for k, v := range current {
		out[k] = append([]string(nil), v...)
	}
	for _, name := range fields {
		out.Del(name)
	}
	out.Del(FieldLimit)
	out.Del(FieldOffset)

	for k, v := range form {
		out.Del(k)
		if IsPaginationField(k) {
			continue
		}
		if vals := valueStrings(v); len(nonEmpty(vals)) > 0 {
			out[k] = nonEmpty(vals)
		}
	}

	if page.Limit > 0 && page.Limit != limits.Default {
		out.Set(FieldLimit, strconv.Itoa(page.Limit))
	}
	if page.Offset > 0 {
		out.Set(FieldOffset, strconv.Itoa(page.Offset))
	}
	return out
}

func nonEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
