package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const testCSRFSecret = "test-secret-key-for-csrf"

func setupCSRFRouter() *gin.Engine {
	r := gin.New()
	pages := r.Group("/")
	pages.Use(CSRF(testCSRFSecret))
	pages.GET("/technologies", func(c *gin.Context) {
		c.String(http.StatusOK, GetCSRFToken(c))
	})
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		pages.Handle(method, "/technologies/modal", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
	}

	api := r.Group("/tsam/api")
	api.POST("/technologies", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": "1"})
	})
	return r
}

// pageToken loads a page and returns the token rendered into it and the
// cookie that came with it.
func pageToken(t *testing.T, r http.Handler) (token, cookie string) {
	t.Helper()
	w := serve(r, http.MethodGet, "/technologies", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET: expected 200, got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c.Value
		}
	}
	if cookie == "" {
		t.Fatal("expected _csrf_token cookie to be set")
	}
	return w.Body.String(), cookie
}

func unsafeRequest(r http.Handler, method, cookie, header, field string, htmx bool) *httptest.ResponseRecorder {
	var body *strings.Reader
	if field != "" {
		body = strings.NewReader(url.Values{csrfFormField: {field}}.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, "/technologies/modal", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookie})
	}
	if header != "" {
		req.Header.Set(CSRFHeader, header)
	}
	if htmx {
		req.Header.Set(HeaderHXRequest, "true")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCSRF_GET_IssuesToken(t *testing.T) {
	r := setupCSRFRouter()
	w := serve(r, http.MethodGet, "/technologies", nil)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	ck := cookies[0]
	if ck.Value != w.Body.String() {
		t.Errorf("template token %q differs from cookie %q", w.Body.String(), ck.Value)
	}
	if ck.HttpOnly || ck.SameSite != http.SameSiteStrictMode || ck.Path != "/" {
		t.Errorf("cookie attributes = %+v", ck)
	}
	if !validToken(ck.Value, testCSRFSecret) {
		t.Error("issued token does not verify")
	}
}

func TestCSRF_GET_KeepsValidCookie(t *testing.T) {
	r := setupCSRFRouter()
	_, cookie := pageToken(t, r)

	req := httptest.NewRequest(http.MethodGet, "/technologies", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookie})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if len(w.Result().Cookies()) != 0 {
		t.Error("a valid cookie should not be replaced")
	}
	if w.Body.String() != cookie {
		t.Errorf("token = %q, want existing cookie", w.Body.String())
	}
}

func TestCSRF_GET_ReplacesForeignCookie(t *testing.T) {
	r := setupCSRFRouter()
	req := httptest.NewRequest(http.MethodGet, "/technologies", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: mustGenerateToken("other-secret")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if len(w.Result().Cookies()) != 1 || !validToken(w.Body.String(), testCSRFSecret) {
		t.Error("a token signed with another secret should be regenerated")
	}
}

func TestCSRF_UnsafeMethods(t *testing.T) {
	r := setupCSRFRouter()
	token, cookie := pageToken(t, r)
	forged := mustGenerateToken("other-secret")
	tampered := strings.SplitN(cookie, ".", 2)[0] + ".AAAA"

	tests := []struct {
		name                  string
		method                string
		cookie, header, field string
		want                  int
	}{
		{"post header", http.MethodPost, cookie, token, "", http.StatusOK},
		{"post form field", http.MethodPost, cookie, "", token, http.StatusOK},
		{"put", http.MethodPut, cookie, token, "", http.StatusOK},
		{"patch", http.MethodPatch, cookie, token, "", http.StatusOK},
		{"delete", http.MethodDelete, cookie, token, "", http.StatusOK},
		{"missing cookie", http.MethodPost, "", token, "", http.StatusForbidden},
		{"missing token", http.MethodPost, cookie, "", "", http.StatusForbidden},
		{"mismatched token", http.MethodPost, cookie, mustGenerateToken(testCSRFSecret), "", http.StatusForbidden},
		{"forged pair", http.MethodPost, forged, forged, "", http.StatusForbidden},
		{"tampered pair", http.MethodDelete, tampered, tampered, "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := unsafeRequest(r, tt.method, tt.cookie, tt.header, tt.field, false)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d; body: %s", tt.want, w.Code, w.Body.String())
			}
			if tt.want == http.StatusForbidden {
				if got := errorMessage(t, w.Body.Bytes()); got != csrfExpiredMessage {
					t.Errorf("error = %q", got)
				}
			}
		})
	}
}

func TestCSRF_HTMXFailureRaisesAlert(t *testing.T) {
	r := setupCSRFRouter()
	w := unsafeRequest(r, http.MethodPost, "", "", "", true)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	var events map[string]string
	if err := json.Unmarshal([]byte(w.Header().Get(HeaderHXTrigger)), &events); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if events[EventShowAlert] != csrfExpiredMessage {
		t.Errorf("events = %v", events)
	}
}

func TestCSRF_APIGroupExempt(t *testing.T) {
	w := serve(setupCSRFRouter(), http.MethodPost, "/tsam/api/technologies", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCSRF_EmptySecret(t *testing.T) {
	r := gin.New()
	r.Use(CSRF("  "))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	if w := serve(r, http.MethodGet, "/", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestValidToken(t *testing.T) {
	good := mustGenerateToken(testCSRFSecret)
	for _, tc := range []struct {
		token string
		want  bool
	}{
		{good, true},
		{"", false},
		{"nodot", false},
		{".sig", false},
		{"nonce.", false},
		{good + "x", false},
	} {
		if got := validToken(tc.token, testCSRFSecret); got != tc.want {
			t.Errorf("validToken(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func mustGenerateToken(secret string) string {
	token, err := generateToken(secret)
	if err != nil {
		panic(err)
	}
	return token
}
