package devapi

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	defaultOrder = "created_at desc, id"
)

type scope = func(db *gorm.DB) *gorm.DB

// validColumn matches only alphanumeric characters and underscores.
var validColumn = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// window is the requested page. Offset is a page index, not a row count:
// the first row returned is Limit*Offset.
type window struct {
	Limit  int
	Offset int
}

// parseWindow reads limit and offset from q. Missing or malformed values
// fall back to the first page of defaultLimit rows.
func parseWindow(q url.Values) window {
	w := window{Limit: defaultLimit}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		w.Limit = min(n, maxLimit)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		w.Offset = n
	}
	return w
}

// orderBy applies sort=column:asc|desc when column is allowed, and the
// newest-first default otherwise.
func orderBy(sort string, allowed []string) scope {
	return func(db *gorm.DB) *gorm.DB {
		column, dir, ok := strings.Cut(sort, ":")
		column = strings.TrimSpace(column)
		dir = strings.ToLower(strings.TrimSpace(dir))
		if !ok || (dir != "asc" && dir != "desc") ||
			!validColumn.MatchString(column) || !slices.Contains(allowed, column) {
			return db.Order(defaultOrder)
		}
		return db.Order(column + " " + dir + ", id")
	}
}

// column guards every generated condition against a malformed name.
func column(db *gorm.DB, name string) bool {
	if validColumn.MatchString(name) {
		return true
	}
	_ = db.AddError(fmt.Errorf("devapi: invalid column %q", name))
	return false
}

// contains matches rows whose column holds v, ignoring case.
func contains(name string, v *string) scope {
	return func(db *gorm.DB) *gorm.DB {
		if v == nil || *v == "" || !column(db, name) {
			return db
		}
		pattern := "%" + escapeLike(strings.ToLower(*v)) + "%"
		return db.Where("LOWER("+name+`) LIKE ? ESCAPE '\'`, pattern)
	}
}

func equals[T any](name string, v *T) scope {
	return func(db *gorm.DB) *gorm.DB {
		if v == nil || !column(db, name) {
			return db
		}
		return db.Where(name+" = ?", *v)
	}
}

func atLeast[T any](name string, v *T) scope {
	return func(db *gorm.DB) *gorm.DB {
		if v == nil || !column(db, name) {
			return db
		}
		return db.Where(name+" >= ?", *v)
	}
}

func atMost[T any](name string, v *T) scope {
	return func(db *gorm.DB) *gorm.DB {
		if v == nil || !column(db, name) {
			return db
		}
		return db.Where(name+" <= ?", *v)
	}
}

func oneOf(name string, vals []string) scope {
	return func(db *gorm.DB) *gorm.DB {
		if len(vals) == 0 || !column(db, name) {
			return db
		}
		return db.Where(name+" IN ?", vals)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
