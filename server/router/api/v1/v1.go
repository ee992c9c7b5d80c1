package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/signalwatch/internal/observability"
	"github.com/hrygo/signalwatch/internal/profile"
	"github.com/hrygo/signalwatch/server/middleware"
	"github.com/hrygo/signalwatch/server/service/event"
	"github.com/hrygo/signalwatch/server/service/watchlist"
	"github.com/hrygo/signalwatch/store/cache"
)

// CacheStats is implemented by caches that keep counters.
type CacheStats interface {
	Stats() cache.Stats
}

type APIV1Service struct {
	Profile    *profile.Profile
	Watchlists watchlist.Service
	Events     event.Service
	// Cache is reported by the health endpoint; nil when caching is off.
	Cache   CacheStats
	Metrics *observability.Metrics

	stops []func()
}

func NewAPIV1Service(profile *profile.Profile, watchlists watchlist.Service, events event.Service, cacheStats CacheStats, metrics *observability.Metrics) *APIV1Service {
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &APIV1Service{
		Profile:    profile,
		Watchlists: watchlists,
		Events:     events,
		Cache:      cacheStats,
		Metrics:    metrics,
	}
}

// Register mounts the health checks and the /api/v1 routes on echoServer.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	echoServer.GET("/health", s.Health)
	echoServer.GET("/healthz", s.Health)

	api := echoServer.Group("/api/v1")

	api.GET("/watchlists", s.ListWatchlists)
	api.POST("/watchlists", s.CreateWatchlist)
	api.GET("/watchlists/:id", s.GetWatchlist)

	// Event creation calls the model, so it carries the AI limits on top of the general one.
	aiHourly, stopHourly := middleware.RateLimit(middleware.AIRateLimitConfig(s.Profile.RateLimitAIHourly))
	aiDaily, stopDaily := middleware.RateLimit(middleware.DailyAIRateLimitConfig(s.Profile.RateLimitAIDaily))
	s.stops = append(s.stops, stopHourly, stopDaily)

	api.GET("/events", s.ListEvents)
	api.POST("/events", s.CreateEvent, aiDaily, aiHourly)
	api.GET("/events/feed.rss", s.EventFeed)
	api.GET("/events/:id", s.GetEvent)
}

// Close stops the background work started by Register.
func (s *APIV1Service) Close() {
	for _, stop := range s.stops {
		stop()
	}
	s.stops = nil
}

// Response is the success envelope.
type Response struct {
	Success       bool   `json:"success"`
	Data          any    `json:"data"`
	CorrelationID string `json:"correlationId"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{
		Success:       true,
		Data:          data,
		CorrelationID: observability.CorrelationID(c.Request().Context()),
	})
}

func respondOK(c echo.Context, data any) error {
	return respond(c, http.StatusOK, data)
}
