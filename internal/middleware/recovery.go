package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
)

// Recovery returns a gin middleware that recovers from panics, logs the error
// with stack trace using slog, and answers in the shape the caller expects:
//
//   - htmx requests get a showAlert event and no swap
//   - browser navigations outside apiPrefix render errors/500.html
//   - everything else gets {"error":{"error":"internal server error"}}
func Recovery(logger *slog.Logger, apiPrefix string) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", err),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("route", c.FullPath()),
					slog.String("stack", string(debug.Stack())),
				)

				inAPI := apiPrefix != "" && strings.HasPrefix(c.Request.URL.Path, apiPrefix)
				switch {
				case IsHTMX(c):
					AbortWithAlert(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
				case !inAPI && acceptsHTML(c):
					c.Abort()
					renderHTMLError(c)
				default:
					c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody(statusMessage(http.StatusInternalServerError)))
				}
			}
		}()
		c.Next()
	}
}

// renderHTMLError attempts to render the errors/500.html template.
// If the HTML renderer is not configured or rendering fails, it falls back
// to a plain text 500 response.
func renderHTMLError(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Internal Server Error"))
		}
	}()
	c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
}
