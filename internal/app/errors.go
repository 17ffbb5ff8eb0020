package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tsam/console/internal/middleware"
)

// errorPages are the full-page error templates; other codes use the 500 page.
var errorPages = map[int]string{
	http.StatusBadRequest:          "errors/400.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusInternalServerError: "errors/500.html",
}

// renderError answers a request the console cannot serve. htmx requests
// get an alert and no swap, so a stale link never replaces the list with a
// whole error page. JSON clients get the error envelope, browsers the
// error page.
func renderError(c *gin.Context, code int, message string) {
	switch {
	case middleware.IsHTMX(c):
		middleware.AbortWithAlert(c, code, alertText(code))
	case wantsJSON(c.GetHeader("Accept")):
		c.AbortWithStatusJSON(code, middleware.ErrorBody(message))
	default:
		renderErrorPage(c, code)
	}
}

// renderErrorPage falls back to plain text when no renderer is configured.
func renderErrorPage(c *gin.Context, code int) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(code, "text/plain; charset=utf-8", []byte(fmt.Sprintf("%d %s", code, http.StatusText(code))))
		}
	}()
	page, ok := errorPages[code]
	if !ok {
		page = errorPages[http.StatusInternalServerError]
	}
	c.HTML(code, page, gin.H{})
	c.Abort()
}

// wantsJSON reports whether accept asks for JSON and not HTML. Browsers and
// clients sending */* or nothing get HTML.
func wantsJSON(accept string) bool {
	accept = strings.ToLower(accept)
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

func alertText(code int) string {
	if code == http.StatusNotFound {
		return "The requested page no longer exists."
	}
	return http.StatusText(code)
}
