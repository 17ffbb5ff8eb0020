package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	// CSRFHeader is sent by htmx on every request, see hx-headers in the
	// base layout.
	CSRFHeader     = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// csrfExpiredMessage is shown when a page outlived its token, typically
// after a server restart with a generated secret.
const csrfExpiredMessage = "Your session has expired. Reload the page and try again."

// CSRF returns a gin middleware protecting the console's pages with a
// signed double-submit cookie. The token format is
// hex(nonce) + "." + base64url(HMAC-SHA256(nonce, secret)).
//
// Safe methods make sure a valid token cookie exists and expose the token to
// templates under "CSRFToken". Unsafe methods must echo the cookie in the
// X-CSRF-Token header or the _csrf_token form field; failures abort with 403
// through AbortWithAlert, so htmx callers see an alert instead of a swap.
//
// The REST API is exempt by not registering this middleware on its group.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			AbortWithAlert(c, http.StatusInternalServerError, "csrf secret is required")
		}
	}

	secure := gin.Mode() == gin.ReleaseMode
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := c.Cookie(csrfCookieName)
			if err != nil || !validToken(token, secret) {
				if token, err = generateToken(secret); err != nil {
					AbortWithAlert(c, http.StatusInternalServerError, "failed to generate CSRF token")
					return
				}
				setCSRFCookie(c, token, secure)
			}
			c.Set(csrfContextKey, token)
			c.Next()

		default:
			cookieToken, _ := c.Cookie(csrfCookieName)
			requestToken := c.GetHeader(CSRFHeader)
			if requestToken == "" {
				requestToken = c.PostForm(csrfFormField)
			}
			if cookieToken == "" || requestToken == "" ||
				!validToken(cookieToken, secret) ||
				subtle.ConstantTimeCompare([]byte(cookieToken), []byte(requestToken)) != 1 {
				AbortWithAlert(c, http.StatusForbidden, csrfExpiredMessage)
				return
			}
			c.Set(csrfContextKey, cookieToken)
			c.Next()
		}
	}
}

// GetCSRFToken retrieves the CSRF token stored in gin.Context by the CSRF middleware.
// Returns an empty string if no token is available.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

func generateToken(secret string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	nonceHex := hex.EncodeToString(nonce)
	return nonceHex + "." + signNonce(nonceHex, secret), nil
}

func signNonce(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// validToken checks whether the token has a valid format and a correct HMAC signature.
func validToken(token, secret string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sig), []byte(signNonce(nonce, secret))) == 1
}

// setCSRFCookie stores the token readable by scripts, SameSite=Strict, and
// Secure in release mode.
func setCSRFCookie(c *gin.Context, token string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
