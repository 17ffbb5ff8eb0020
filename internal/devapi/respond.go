package devapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/middleware"
)

// writeError answers with {"error":{"error":message}}. Internal errors are
// attached to the gin context for the access log and hidden from clients.
func writeError(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	msg := strings.ToLower(http.StatusText(status))

	var appErr *domain.AppError
	if status < http.StatusInternalServerError && errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	} else {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, middleware.ErrorBody(msg))
}

// bindRecord decodes the JSON body into a record and validates it.
func bindRecord[E any](c *gin.Context, v *domain.Validator) (E, bool) {
	var rec E
	if err := c.ShouldBindJSON(&rec); err != nil {
		writeError(c, domain.NewAppError(domain.CodeValidation, "invalid request body", err))
		return rec, false
	}
	if fields := v.Struct(&rec); len(fields) > 0 {
		writeError(c, domain.ValidationError(fields))
		return rec, false
	}
	return rec, true
}

// mapError converts GORM errors to domain errors worded for title.
func mapError(err error, title string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewAppError(domain.CodeNotFound, fmt.Sprintf("%s not found", title), err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, fmt.Sprintf("%s already exists", title), err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. Not every dialector translates driver errors to
// gorm.ErrDuplicatedKey (the pure-Go SQLite driver does not).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
