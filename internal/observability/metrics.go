package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects request and enrichment counters for the health endpoint.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	aiCalls     atomic.Int64
	aiFallbacks atomic.Int64

	routes map[string]*RouteMetrics
}

// RouteMetrics represents metrics for a single route.
type RouteMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		routes: make(map[string]*RouteMetrics),
	}
}

// RecordRequest records a finished request on route.
func (m *Metrics) RecordRequest(route string, duration time.Duration, failed bool) {
	rm := m.route(route)
	m.requestTotal.Add(1)
	rm.count.Add(1)
	rm.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		rm.errorCount.Add(1)
	}
}

// RecordAICall records an enrichment that reached the model.
func (m *Metrics) RecordAICall() {
	m.aiCalls.Add(1)
}

// RecordAIFallback records an enrichment answered by the rule fallback.
func (m *Metrics) RecordAIFallback() {
	m.aiFallbacks.Add(1)
}

func (m *Metrics) route(route string) *RouteMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routes[route]
	if !ok {
		rm = &RouteMetrics{}
		m.routes[route] = rm
	}
	return rm
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.aiCalls.Store(0)
	m.aiFallbacks.Store(0)

	m.mu.Lock()
	m.routes = make(map[string]*RouteMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := make(map[string]*RouteMetricsSnapshot, len(m.routes))
	for route, rm := range m.routes {
		count := rm.count.Load()
		snapshot := &RouteMetricsSnapshot{
			Count:      count,
			ErrorCount: rm.errorCount.Load(),
		}
		if count > 0 {
			snapshot.AverageDurationMs = rm.totalDuration.Load() / count
		}
		routes[route] = snapshot
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		AICalls:       m.aiCalls.Load(),
		AIFallbacks:   m.aiFallbacks.Load(),
		Routes:        routes,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                            `json:"requestTotal"`
	RequestFailed int64                            `json:"requestFailed"`
	AICalls       int64                            `json:"aiCalls"`
	AIFallbacks   int64                            `json:"aiFallbacks"`
	Routes        map[string]*RouteMetricsSnapshot `json:"routes"`
}

// RouteMetricsSnapshot represents metrics for a single route.
type RouteMetricsSnapshot struct {
	Count             int64 `json:"count"`
	ErrorCount        int64 `json:"errorCount"`
	AverageDurationMs int64 `json:"averageDurationMs"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
