package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/ginx"
)

const timeoutMessage = "The server took too long to respond. Please try again."

// Timeout runs the rest of the chain under ginx.Timeout, so backend calls
// made by the handler are cancelled once d elapses. A request that overruns
// is answered with 503: htmx requests get an alert event and no swap,
// everything else the JSON error envelope. d <= 0 disables the middleware.
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	run := ginx.NewChain().
		WithErrorFormat(func(int, string) any { return ErrorBody(timeoutMessage) }).
		Use(ginx.Timeout(ginx.WithTimeout(d))).
		Build()
	return func(c *gin.Context) {
		tw := &timeoutWriter{ResponseWriter: c.Writer, htmx: IsHTMX(c)}
		c.Writer = tw
		run(c)
		c.Writer = tw.ResponseWriter
	}
}

// timeoutWriter turns the 408 ginx writes on expiry into the console's
// 503 alert.
type timeoutWriter struct {
	gin.ResponseWriter
	htmx     bool
	timedOut bool
}

func (w *timeoutWriter) WriteHeader(code int) {
	if code == http.StatusRequestTimeout && w.Header().Get("X-Timeout") == "true" {
		w.timedOut = true
		code = http.StatusServiceUnavailable
		if w.htmx {
			addTrigger(w.Header(), EventShowAlert, timeoutMessage)
			w.Header().Set(HeaderHXReswap, "none")
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	if w.timedOut && w.htmx {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *timeoutWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
