package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitPrefix namespaces limiter keys in a shared store.
const RateLimitPrefix = "tsam:ratelimit"

const rateLimitedMessage = "Too many requests. Please wait a moment and try again."

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// RPS is the sustained request rate per client IP.
	RPS float64
	// Burst is how many requests a client may send at once.
	Burst int
	// Store keeps the counters. A memory store is used when nil.
	Store limiter.Store
	// SkipPrefixes are path prefixes that are never limited.
	SkipPrefixes []string
	Logger       *slog.Logger
}

// RateFor converts a sustained rate and a burst into a fixed window: burst
// requests per burst/rps seconds.
func RateFor(rps float64, burst int) limiter.Rate {
	if burst < 1 {
		burst = 1
	}
	period := time.Second
	if rps > 0 {
		period = time.Duration(float64(burst) / rps * float64(time.Second))
	}
	return limiter.Rate{Period: max(period, time.Millisecond), Limit: int64(burst)}
}

// NewRateLimitMemoryStore returns an in-process counter store.
func NewRateLimitMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          RateLimitPrefix,
		CleanUpInterval: time.Minute,
	})
}

// NewRateLimitRedisStore keeps counters in redis so several console
// instances share one budget per client.
func NewRateLimitRedisStore(client *redis.Client) (limiter.Store, error) {
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   RateLimitPrefix,
		MaxRetry: 3,
	})
}

// RateLimit limits requests per client IP. Limited requests get 429 through
// AbortWithAlert. The X-RateLimit-* headers are set on every limited route.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Store
	if store == nil {
		store = NewRateLimitMemoryStore()
	}

	mw := mgin.NewMiddleware(
		limiter.New(store, RateFor(cfg.RPS, cfg.Burst)),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.WarnContext(c.Request.Context(), "rate limit reached",
				slog.String("client_ip", c.ClientIP()),
				slog.String("path", c.Request.URL.Path),
			)
			AbortWithAlert(c, http.StatusTooManyRequests, rateLimitedMessage)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			logger.ErrorContext(c.Request.Context(), "rate limit store failed", slog.Any("error", err))
			AbortWithAlert(c, http.StatusServiceUnavailable, "Service temporarily unavailable.")
		}),
	)

	return func(c *gin.Context) {
		for _, p := range cfg.SkipPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}
		mw(c)
	}
}
