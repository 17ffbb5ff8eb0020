package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/simp-lee/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsam/console/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...func(*Options)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	o := Options{BaseURL: srv.URL + "/tsam/api", Timeout: 2 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := New(o)
	require.NoError(t, err)
	return c, srv
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:8080", "://bad"} {
		_, err := New(Options{BaseURL: base})
		assert.Error(t, err, base)
	}
}

func TestList_TotalCountHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"header present", "23", 23},
		{"header zero", "0", 0},
		{"header missing", "", 2},
		{"header malformed", "many", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set(TotalCountHeader, tt.header)
				}
				_, _ = io.WriteString(w, `[{"id":"1","name":"Go","rating":4},{"id":"2","name":"Java","rating":3}]`)
			})
			page, err := NewResource[domain.Technology](c, "technologies").List(context.Background(), nil)
			require.NoError(t, err)
			assert.Len(t, page.Items, 2)
			assert.Equal(t, tt.want, page.TotalCount)
		})
	}
}

func TestList_SendsQueryAndAuth(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set(TotalCountHeader, "0")
		_, _ = io.WriteString(w, `[]`)
	}, func(o *Options) { o.Auth = BearerToken("secret") })

	q := url.Values{"name": {"Java"}, "limit": {"5"}, "offset": {"0"}}
	ctx := logger.WithContextAttrs(context.Background(), slog.String("request_id", "req-42"))
	page, err := NewResource[domain.Technology](c, "/technologies/").List(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	require.NotNil(t, got)
	assert.Equal(t, "/tsam/api/technologies", got.URL.Path)
	assert.Equal(t, q, got.URL.Query())
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	assert.Equal(t, "tsam-console", got.Header.Get("User-Agent"))
	assert.Equal(t, "req-42", got.Header.Get(RequestIDHeader))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
		alert  string
	}{
		{
			name:   "nested error body",
			status: http.StatusBadRequest,
			body:   `{"error":{"error":"Technology already exists"}}`,
			code:   domain.CodeBackend,
			alert:  "Technology already exists",
		},
		{
			name:   "flat error body",
			status: http.StatusUnprocessableEntity,
			body:   `{"error":"Rating must be between 1 and 5"}`,
			code:   domain.CodeBackend,
			alert:  "Rating must be between 1 and 5",
		},
		{
			name:   "not found keeps message",
			status: http.StatusNotFound,
			body:   `{"error":"No technology with id 9"}`,
			code:   domain.CodeNotFound,
			alert:  "No technology with id 9",
		},
		{
			name:   "nonstandard 520 nested body",
			status: 520,
			body:   `{"error":{"error":"Position already exists"}}`,
			code:   domain.CodeBackend,
			alert:  "Position already exists",
		},
		{
			name:   "nonstandard 520 flat body",
			status: 520,
			body:   `{"error":"Position already exists"}`,
			code:   domain.CodeBackend,
			alert:  "Position already exists",
		},
		{
			name:   "nonstandard 599 nested body",
			status: 599,
			body:   `{"error":{"error":"Upstream rejected the record"}}`,
			code:   domain.CodeBackend,
			alert:  "Upstream rejected the record",
		},
		{
			name:   "nonstandard 599 flat body",
			status: 599,
			body:   `{"error":"Upstream rejected the record"}`,
			code:   domain.CodeBackend,
			alert:  "Upstream rejected the record",
		},
		{
			name:   "nonstandard status without message",
			status: 599,
			body:   `<html>oops</html>`,
			code:   domain.CodeUnclassified,
			alert:  "HTTP 599",
		},
		{
			name:   "unclassified uses status text",
			status: http.StatusInternalServerError,
			body:   `<html>oops</html>`,
			code:   domain.CodeUnclassified,
			alert:  "Internal Server Error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := NewResource[domain.Technology](c, "technologies").Get(context.Background(), "9")
			require.Error(t, err)

			var appErr *domain.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, appErr.Status)
			assert.Equal(t, tt.alert, domain.AlertMessage(err))
		})
	}
}

func TestAdd_NonstandardStatusShowsServerMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(520)
		_, _ = io.WriteString(w, `{"error":{"error":"Position already exists"}}`)
	})
	_, err := NewResource[domain.Designation](c, "designations").
		Add(context.Background(), domain.Designation{Position: "Java Developer", IsActive: true})
	require.Error(t, err)

	assert.True(t, domain.IsBackend(err))
	assert.False(t, domain.IsConnectivity(err))
	assert.Equal(t, "Position already exists", domain.AlertMessage(err))

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "HTTP 520", appErr.StatusText)
}

func TestConnectivityFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := NewResource[domain.Technology](c, "technologies").List(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, domain.IsConnectivity(err))
	assert.Equal(t, domain.ConnectivityMessage, domain.AlertMessage(err))
}

func TestTimeoutIsConnectivity(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(o *Options) { o.Timeout = 50 * time.Millisecond })
	defer close(release)

	_, err := NewResource[domain.Technology](c, "technologies").List(context.Background(), nil)
	assert.True(t, domain.IsConnectivity(err))
}

func TestMutations(t *testing.T) {
	type seen struct {
		method, path string
		body         map[string]any
	}
	var (
		mu    sync.Mutex
		calls []seen
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, seen{r.Method, r.URL.Path, body})
		mu.Unlock()

		switch r.Method {
		case http.MethodPost:
			_, _ = io.WriteString(w, `{"id":"t-9","name":"Go","rating":4}`)
		case http.MethodPut:
			_, _ = io.WriteString(w, `"Technology updated"`)
		case http.MethodDelete:
			_, _ = io.WriteString(w, `{"message":"Technology removed"}`)
		}
	})
	res := NewResource[domain.Technology](c, "technologies")
	ctx := context.Background()

	added, err := res.Add(ctx, domain.Technology{Name: "Go", Rating: 4})
	require.NoError(t, err)
	require.NotNil(t, added.Record)
	assert.Equal(t, "t-9", added.Record.ID)
	assert.Empty(t, added.Message)

	updated, err := res.Update(ctx, domain.Technology{BaseModel: domain.BaseModel{ID: "t-9"}, Name: "Go", Rating: 5})
	require.NoError(t, err)
	assert.Nil(t, updated.Record)
	assert.Equal(t, "Technology updated", updated.Message)

	deleted, err := res.Delete(ctx, "t-9")
	require.NoError(t, err)
	assert.Equal(t, "Technology removed", deleted.Message)

	require.Len(t, calls, 3)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/tsam/api/technologies", calls[0].path)
	assert.NotContains(t, calls[0].body, "id")

	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Equal(t, "/tsam/api/technologies", calls[1].path)
	assert.Equal(t, "t-9", calls[1].body["id"])

	assert.Equal(t, http.MethodDelete, calls[2].method)
	assert.Equal(t, "/tsam/api/technologies/t-9", calls[2].path)
}

type recordingObserver struct {
	mu     sync.Mutex
	status []int
}

func (o *recordingObserver) ObserveCall(_, _ string, status int, _ time.Duration, _ error) {
	o.mu.Lock()
	o.status = append(o.status, status)
	o.mu.Unlock()
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}, func(o *Options) { o.Observer = obs })

	res := NewResource[domain.Technology](c, "technologies")
	_, _ = res.List(context.Background(), nil)
	_, _ = res.Get(context.Background(), "missing")

	assert.Equal(t, []int{200, 404}, obs.status)
}

func TestPing(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	assert.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.True(t, domain.IsConnectivity(c.Ping(context.Background())))
}
