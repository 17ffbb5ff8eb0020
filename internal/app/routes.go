package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tsam/console/internal/config"
	"github.com/tsam/console/internal/middleware"
	"github.com/tsam/console/web"
)

// healthTimeout bounds each health check.
const healthTimeout = time.Second

// HealthCheck is one component reported by /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	// Pages are mounted at the root behind CSRF protection.
	Pages []Module
	// API, when set, is mounted at config.EmbeddedAPIPath without CSRF.
	API         Module
	Health      []HealthCheck
	Metrics     http.Handler
	MetricsPath string
	Mode        string // "debug" or "release"
	CSRFSecret  string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Pages) == 0 {
		return errors.New("at least one page module is required")
	}
	if strings.TrimSpace(deps.CSRFSecret) == "" {
		return errors.New("csrf secret is required")
	}

	// Static assets
	if err := registerStaticRoutesWithError(r, deps.Mode); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}

	r.GET("/health", healthHandler(deps.Health))

	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		r.GET(path, gin.WrapH(deps.Metrics))
	}

	// Embedded API, no CSRF
	if deps.API != nil {
		deps.API.RegisterRoutes(r.Group(config.EmbeddedAPIPath))
	}

	// Page routes behind CSRF
	pages := r.Group("/")
	pages.Use(middleware.CSRF(deps.CSRFSecret))
	for i, m := range deps.Pages {
		if m == nil {
			return fmt.Errorf("page module at index %d is nil", i)
		}
		m.RegisterRoutes(pages)
	}

	r.NoRoute(noRouteHandler())

	return nil
}

// healthHandler runs every check and reports each component. Any failure
// makes the whole service degraded with 503.
func healthHandler(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		components := gin.H{}

		for _, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			err := check.Ping(ctx)
			cancel()
			if err != nil {
				components[check.Name] = "error"
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			components[check.Name] = "ok"
		}

		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
		})
	}
}

// noRouteHandler returns a handler that renders a 404 HTML page for browser
// requests or a JSON response for API clients.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == config.EmbeddedAPIPath || strings.HasPrefix(path, config.EmbeddedAPIPath+"/") {
			c.JSON(http.StatusNotFound, middleware.ErrorBody("not found"))
			return
		}

		renderError(c, http.StatusNotFound, "not found")
	}
}

func registerStaticRoutesWithError(r *gin.Engine, mode string) error {
	if mode == gin.DebugMode {
		debugStaticFS, err := resolveDebugStaticFS()
		if err != nil {
			return fmt.Errorf("resolve debug static filesystem: %w", err)
		}
		fileServer := http.StripPrefix("/static", http.FileServer(http.FS(debugStaticFS)))
		r.GET("/static/*filepath", func(c *gin.Context) {
			fileServer.ServeHTTP(c.Writer, c.Request)
		})
		return nil
	}

	// Release mode: serve from embed.FS with cache headers.
	staticFS, err := fs.Sub(web.EmbeddedFS, "static")
	if err != nil {
		return fmt.Errorf("create sub filesystem for static assets: %w", err)
	}
	r.GET("/static/*filepath", cacheStaticHandler(http.FS(staticFS)))
	return nil
}

func resolveDebugStaticFS() (fs.FS, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("resolve current file path")
	}

	projectRoot := filepath.Clean(filepath.Join(filepath.Dir(currentFile), "..", ".."))
	staticDir := filepath.Join(projectRoot, "web", "static")
	if _, err := os.Stat(staticDir); err != nil {
		return nil, fmt.Errorf("stat static directory %q: %w", staticDir, err)
	}

	return os.DirFS(staticDir), nil
}

// cacheStaticHandler wraps an http.FileSystem handler and sets a Cache-Control
// header for release mode static assets.
func cacheStaticHandler(fsys http.FileSystem) gin.HandlerFunc {
	fileServer := http.StripPrefix("/static", http.FileServer(fsys))
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
