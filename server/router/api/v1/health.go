package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/signalwatch/internal/observability"
	"github.com/hrygo/signalwatch/store/cache"
)

// HealthResponse is returned by /health and /healthz.
type HealthResponse struct {
	Status    string                         `json:"status"`
	Service   string                         `json:"service"`
	Version   string                         `json:"version"`
	Timestamp string                         `json:"timestamp"`
	Cache     *cache.Stats                   `json:"cache,omitempty"`
	Requests  *observability.MetricsSnapshot `json:"requests,omitempty"`
}

// Health reports liveness plus cache and request counters.
// GET /health, GET /healthz
func (s *APIV1Service) Health(c echo.Context) error {
	resp := HealthResponse{
		Status:    "healthy",
		Service:   "Signal Watcher API",
		Version:   s.Profile.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Requests:  s.Metrics.Snapshot(),
	}
	if s.Cache != nil {
		stats := s.Cache.Stats()
		resp.Cache = &stats
	}
	return c.JSON(http.StatusOK, resp)
}
