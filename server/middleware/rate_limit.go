package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key. A bucket refills limit tokens per
// window and holds at most limit tokens. Buckets idle for a whole window are
// full again and are dropped.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	limits *ttlcache.Cache[string, *rate.Limiter]
	now    func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewRateLimiter creates a limiter admitting limit requests per window and key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		limits: ttlcache.New[string, *rate.Limiter](
			ttlcache.WithTTL[string, *rate.Limiter](window),
		),
		now:  time.Now,
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Get touches the item, so the idle timer restarts on every request.
	if item := rl.limits.Get(key); item != nil {
		return item.Value()
	}

	every := rl.window / time.Duration(rl.limit)
	limiter := rate.NewLimiter(rate.Every(every), rl.limit)
	rl.limits.Set(key, limiter, ttlcache.DefaultTTL)
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).AllowN(rl.now(), 1)
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// Len returns the number of live buckets.
func (rl *RateLimiter) Len() int {
	return rl.limits.Len()
}

// Start sweeps expired buckets in the background until Stop is called.
// It returns immediately and is a no-op after the first call or after Stop.
func (rl *RateLimiter) Start() {
	rl.startOnce.Do(func() {
		go rl.sweep()
	})
}

func (rl *RateLimiter) sweep() {
	defer close(rl.done)

	interval := min(rl.window, time.Minute)
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.limits.DeleteExpired()
		case <-rl.quit:
			return
		}
	}
}

// Stop halts the sweeper and waits for it to exit. It is safe to call more
// than once, and without a prior Start.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.quit)
		// Claims startOnce when Start never ran, so done has a single closer.
		rl.startOnce.Do(func() { close(rl.done) })
	})
	<-rl.done
}

// RateLimitResponse is the body returned with 429.
type RateLimitResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter string `json:"retryAfter"`
}

// RateLimitConfig configures one rate limit tier.
type RateLimitConfig struct {
	Skipper echomiddleware.Skipper
	// Limit is the number of requests per Window; 0 disables the tier.
	Limit  int
	Window time.Duration
	// KeyFunc derives the bucket key. Defaults to the client IP.
	KeyFunc  func(c echo.Context) string
	Response RateLimitResponse
}

// GeneralRateLimitConfig allows limit requests per client IP every 15 minutes.
func GeneralRateLimitConfig(limit int) RateLimitConfig {
	return RateLimitConfig{
		Limit:  limit,
		Window: 15 * time.Minute,
		Response: RateLimitResponse{
			Error:      "Too many requests from this IP, try again in 15 minutes.",
			Code:       "RATE_LIMIT_EXCEEDED",
			RetryAfter: "15 minutes",
		},
	}
}

// AIRateLimitConfig allows limit AI-backed requests per client IP and path every hour.
func AIRateLimitConfig(limit int) RateLimitConfig {
	return RateLimitConfig{
		Limit:  limit,
		Window: time.Hour,
		KeyFunc: func(c echo.Context) string {
			return "ai_" + ClientIP(c) + "_" + c.Request().URL.Path
		},
		Response: RateLimitResponse{
			Error:      "AI request limit exceeded, try again in 1 hour.",
			Code:       "AI_RATE_LIMIT_EXCEEDED",
			RetryAfter: "1 hour",
		},
	}
}

// DailyAIRateLimitConfig allows limit AI-backed requests per client IP every 24 hours.
func DailyAIRateLimitConfig(limit int) RateLimitConfig {
	return RateLimitConfig{
		Limit:  limit,
		Window: 24 * time.Hour,
		KeyFunc: func(c echo.Context) string {
			return "daily_ai_" + ClientIP(c)
		},
		Response: RateLimitResponse{
			Error:      "Daily AI operation limit exceeded, try again tomorrow.",
			Code:       "DAILY_AI_LIMIT_EXCEEDED",
			RetryAfter: "24 hours",
		},
	}
}

// RateLimit returns a middleware enforcing config. The returned stop function
// releases the bucket cleanup goroutine.
func RateLimit(config RateLimitConfig) (echo.MiddlewareFunc, func()) {
	if config.Limit <= 0 || config.Window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }, func() {}
	}
	if config.Skipper == nil {
		config.Skipper = echomiddleware.DefaultSkipper
	}
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIP
	}

	limiter := NewRateLimiter(config.Limit, config.Window)
	limiter.Start()

	mw := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}
			if !limiter.Allow(config.KeyFunc(c)) {
				return c.JSON(http.StatusTooManyRequests, config.Response)
			}
			return next(c)
		}
	}
	return mw, limiter.Stop
}
