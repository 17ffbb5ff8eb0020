// Package backend is the REST client for the TSAM backend API.
//
// Every call is classified into a *domain.AppError on failure: transport
// failures become CodeConnectivity, server-reported errors keep the server's
// message, and anything else falls back to the HTTP status text. Calls are
// never retried.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/simp-lee/logger"

	"github.com/tsam/console/internal/domain"
)

// DefaultTimeout bounds every backend call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// TotalCountHeader carries the total number of matching records on list
// responses.
const TotalCountHeader = "X-Total-Count"

// RequestIDHeader forwards the console request id to the backend.
const RequestIDHeader = "X-Request-ID"

const maxResponseBytes = 8 << 20

// Observer receives one callback per backend call.
type Observer interface {
	ObserveCall(endpoint, method string, status int, elapsed time.Duration, err error)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Auth      AuthProvider
	UserAgent string
	Logger    *slog.Logger
	Observer  Observer
	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

// Client talks to the TSAM backend.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	auth      AuthProvider
	userAgent string
	logger    *slog.Logger
	observer  Observer
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{}
	if opts.HTTPClient != nil {
		clone := *opts.HTTPClient
		hc = &clone
	}
	hc.Timeout = timeout

	auth := opts.Auth
	if auth == nil {
		auth = NoAuth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "tsam-console"
	}

	return &Client{
		baseURL:   u,
		http:      hc,
		auth:      auth,
		userAgent: ua,
		logger:    logger,
		observer:  opts.Observer,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Ping checks that the backend answers at all. Any HTTP response counts as
// reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("backend: build ping: %w", err)
	}
	if err := c.auth.AddAuth(req); err != nil {
		return fmt.Errorf("backend: add auth: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	_ = resp.Body.Close()
	return nil
}

// call is one request against an endpoint path relative to the base URL.
type call struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// do sends the call and returns the response header and body of a 2xx
// response. Everything else is returned as a classified error.
func (c *Client) do(ctx context.Context, cl call) (http.Header, []byte, error) {
	u := c.baseURL.JoinPath(cl.path)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), cl.body)
	if err != nil {
		return nil, nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if id := requestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
	if err := c.auth.AddAuth(req); err != nil {
		return nil, nil, fmt.Errorf("backend: add auth: %w", err)
	}

	start := time.Now()
	status, header, body, err := c.send(req)
	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer.ObserveCall(cl.path, cl.method, status, elapsed, err)
	}

	if err != nil {
		c.logger.WarnContext(ctx, "backend call failed",
			"method", cl.method, "path", cl.path, "status", status,
			"latency", elapsed, "error", err)
		return nil, nil, err
	}
	c.logger.DebugContext(ctx, "backend call",
		"method", cl.method, "path", cl.path, "status", status, "latency", elapsed)
	return header, body, nil
}

func (c *Client) send(req *http.Request) (int, http.Header, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, nil, classifyTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil, nil, classifyStatus(resp.StatusCode, body)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in any) (http.Header, []byte, error) {
	cl := call{method: method, path: path, query: query}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, nil, fmt.Errorf("backend: encode request: %w", err)
		}
		cl.body = bytes.NewReader(b)
		cl.contentType = "application/json"
	}
	return c.do(ctx, cl)
}

// decodeMessage reads a body that is either a JSON string, a JSON object
// with a message field, or plain text.
func decodeMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.URL
	}
	return string(body)
}

func decodeError(path string, err error) error {
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return &domain.AppError{
			Code:    domain.CodeUnclassified,
			Message: fmt.Sprintf("malformed response from %s", path),
			Err:     err,
		}
	}
	return fmt.Errorf("backend: decode %s: %w", path, err)
}

// requestID returns the request_id attribute attached to ctx by the
// request id middleware.
func requestID(ctx context.Context) string {
	for _, a := range logger.FromContext(ctx) {
		if a.Key == "request_id" {
			return a.Value.String()
		}
	}
	return ""
}
