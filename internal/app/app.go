package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"github.com/ulule/limiter/v3"
	"gorm.io/gorm"

	"github.com/tsam/console/internal/backend"
	"github.com/tsam/console/internal/config"
	"github.com/tsam/console/internal/devapi"
	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/listview"
	"github.com/tsam/console/internal/metrics"
	"github.com/tsam/console/internal/middleware"
	"github.com/tsam/console/internal/module/console"
	"github.com/tsam/console/internal/resource"
	"github.com/tsam/console/internal/session"
	"github.com/tsam/console/web"
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine  *gin.Engine
	db      *gorm.DB
	closers []func() error
	logger  *logger.Logger
	cfg     *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the modal session store, the embedded API when
// configured, the backend client, the list screens, middleware, template
// rendering, and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false
	var cleanup []func() error
	defer func() {
		if success {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			if err := cleanup[i](); err != nil {
				slog.Error("cleanup error", slog.Any("error", err))
			}
		}
	}()

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	cleanup = append(cleanup, log.Close)

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	m := metrics.New()

	// 2. Modal session store.
	sessions, err := session.Open(session.Options{
		Driver:    cfg.Session.Driver,
		RedisURL:  cfg.Session.RedisURL,
		KeyPrefix: cfg.Session.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	cleanup = append(cleanup, sessions.Close)
	closers := []func() error{sessions.Close}

	validator := domain.NewValidator()

	// 3. Embedded API with its own database.
	var (
		db  *gorm.DB
		api *devapi.API
	)
	if cfg.Backend.Embedded {
		db, err = config.SetupDatabase(&cfg.Database, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}
		cleanup = append(cleanup, func() error { return closeDB(db) })

		api = devapi.New(db, devapi.Options{Validator: validator, Logger: log.Logger})
		ctx := context.Background()
		if err := api.Migrate(ctx); err != nil {
			return nil, err
		}
		if cfg.Backend.Seed {
			if err := api.Seed(ctx); err != nil {
				return nil, fmt.Errorf("seed embedded api: %w", err)
			}
		}
	}

	// 4. Backend client and screens: client → screens → handler.
	client, err := backend.New(backend.Options{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.BackendTimeout(),
		Auth:      backend.BearerToken(cfg.Backend.Token),
		UserAgent: cfg.Backend.UserAgent,
		Logger:    log.Logger,
		Observer:  m,
	})
	if err != nil {
		return nil, fmt.Errorf("setup backend client: %w", err)
	}

	screens := resource.Catalog(resource.Deps{
		Client:     client,
		Sessions:   sessions,
		SessionTTL: cfg.SessionTTL(),
		Validator:  validator,
		Limits:     listview.Limits{Default: cfg.List.DefaultLimit, Max: cfg.List.MaxLimit},
		Logger:     log.Logger,
		Observer:   m,
	})
	pages := console.NewModule(console.NewHandler(screens, log.Logger))

	// 5. Create Gin engine with custom middleware (not gin.Default()).
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	corsConfig, err := resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)
	if err != nil {
		return nil, err
	}

	engine.Use(
		middleware.Recovery(log.Logger, config.EmbeddedAPIPath),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger),
		middleware.CORSWithConfig(corsConfig),
	)
	if cfg.Metrics.Enabled {
		engine.Use(m.Middleware())
	}
	if timeout := serverTimeout(cfg.Server.Timeout); timeout > 0 {
		engine.Use(middleware.Timeout(timeout))
	}
	if cfg.Server.RateLimit.Enabled {
		store, closeStore, err := rateLimitStore(cfg.Session)
		if err != nil {
			return nil, fmt.Errorf("setup rate limit store: %w", err)
		}
		if closeStore != nil {
			cleanup = append(cleanup, closeStore)
			closers = append(closers, closeStore)
		}
		skip := []string{"/static", "/health"}
		if cfg.Backend.Embedded {
			// The console calls the embedded API over loopback.
			skip = append(skip, config.EmbeddedAPIPath)
		}
		engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RPS:          cfg.Server.RateLimit.RPS,
			Burst:        cfg.Server.RateLimit.Burst,
			Store:        store,
			SkipPrefixes: skip,
			Logger:       log.Logger,
		}))
	}

	// 6. Determine filesystem mode and set up template renderer.
	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	// 7. Resolve CSRF secret.
	csrfSecret := cfg.Server.CSRFSecret
	if isPlaceholderCSRFSecret(csrfSecret) {
		if cfg.Server.Mode == gin.ReleaseMode {
			return nil, errors.New("csrf_secret must be a non-placeholder value in release mode")
		}

		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate csrf secret: %w", err)
		}
		csrfSecret = hex.EncodeToString(b)
		log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	}

	// 8. Register all routes.
	deps := &RouteDeps{
		Pages:      []Module{pages},
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
		Health: []HealthCheck{
			{Name: "backend", Ping: client.Ping},
			{Name: "sessions", Ping: sessions.Ping},
		},
	}
	if api != nil {
		deps.API = api
		deps.Health = append(deps.Health, HealthCheck{Name: "database", Ping: pingDB(db)})
	}
	if cfg.Metrics.Enabled {
		deps.MetricsPath = cfg.Metrics.Path
		deps.Metrics = m.Handler()
	}
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	log.Info("console ready",
		slog.Int("screens", len(screens)),
		slog.String("backend", client.BaseURL()),
		slog.Bool("embedded", cfg.Backend.Embedded),
		slog.String("sessions", cfg.Session.Driver),
	)

	success = true
	return &App{
		engine:  engine,
		db:      db,
		closers: closers,
		logger:  log,
		cfg:     cfg,
	}, nil
}

// Handler returns the HTTP handler of the app.
func (a *App) Handler() http.Handler { return a.engine }

func isPlaceholderCSRFSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env":
		return true
	default:
		return false
	}
}

// resolveCORSConfig overlays the configured CORS settings on the defaults.
// In release mode, when no allowlist is configured, cross-origin requests
// are denied.
func resolveCORSConfig(mode string, cfg config.CORSConfig) (middleware.CORSConfig, error) {
	corsConfig := middleware.DefaultCORSConfig()

	switch {
	case len(cfg.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		corsConfig.AllowOrigins = []string{}
	}
	if len(cfg.AllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowHeaders
	}
	corsConfig.AllowCredentials = cfg.AllowCredentials
	if ma := strings.TrimSpace(cfg.MaxAge); ma != "" {
		d, err := time.ParseDuration(ma)
		if err != nil || d <= 0 {
			return middleware.CORSConfig{}, fmt.Errorf("invalid server.cors.max_age %q", cfg.MaxAge)
		}
		corsConfig.MaxAge = d
	}

	return corsConfig, nil
}

// serverTimeout parses server.timeout. Blank or invalid disables it.
func serverTimeout(value string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// rateLimitStore shares counters through redis when sessions already live
// there, and keeps them in memory otherwise.
func rateLimitStore(cfg config.SessionConfig) (limiter.Store, func() error, error) {
	if cfg.Driver != "redis" {
		return middleware.NewRateLimitMemoryStore(), nil, nil
	}
	client, err := session.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	store, err := middleware.NewRateLimitRedisStore(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, client.Close, nil
}

func pingDB(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It performs graceful shutdown with a 5-second timeout, then closes the
// session store and the embedded database.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine)

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := a.log()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Error("close error", slog.Any("error", err))
		}
	}

	if a.db != nil {
		if err := closeDB(a.db); err != nil {
			log.Error("database close error", slog.Any("error", err))
		} else {
			log.Info("database connection closed")
		}
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}

func (a *App) log() *slog.Logger {
	if a.logger != nil {
		return a.logger.Logger
	}
	return slog.Default()
}
