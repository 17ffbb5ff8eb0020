package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// htmx request and response headers.
const (
	HeaderHXRequest    = "HX-Request"
	HeaderHXCurrentURL = "HX-Current-URL"
	HeaderHXTrigger    = "HX-Trigger"
	HeaderHXPushURL    = "HX-Push-Url"
	HeaderHXReswap     = "HX-Reswap"
	HeaderHXRetarget   = "HX-Retarget"
)

// Client events raised through HX-Trigger.
const (
	EventShowAlert = "showAlert"
	EventShowToast = "showToast"
)

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader(HeaderHXRequest) == "true"
}

// Trigger raises a client event carrying message. Events already set on
// the response are kept.
func Trigger(c *gin.Context, event, message string) {
	addTrigger(c.Writer.Header(), event, message)
}

func addTrigger(h http.Header, event, message string) {
	events := map[string]string{}
	if prev := h.Get(HeaderHXTrigger); prev != "" {
		_ = json.Unmarshal([]byte(prev), &events)
	}
	events[event] = message
	b, err := json.Marshal(events)
	if err != nil {
		return
	}
	h.Set(HeaderHXTrigger, string(b))
}

// AbortWithAlert stops the chain with status. htmx requests get an alert
// event and no swap, everything else the JSON error envelope
// {"error":{"error":message}}.
func AbortWithAlert(c *gin.Context, status int, message string) {
	if IsHTMX(c) {
		Trigger(c, EventShowAlert, message)
		c.Header(HeaderHXReswap, "none")
		c.AbortWithStatus(status)
		return
	}
	c.AbortWithStatusJSON(status, ErrorBody(message))
}

// ErrorBody is the JSON error envelope shared with the REST API.
func ErrorBody(message string) gin.H {
	return gin.H{"error": gin.H{"error": message}}
}

// acceptsHTML returns true if the request's Accept header contains "text/html".
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "text/html")
}

func statusMessage(status int) string {
	return strings.ToLower(http.StatusText(status))
}
