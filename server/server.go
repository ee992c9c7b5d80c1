// Package server assembles the HTTP server: echo, the middleware chain and the API routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/signalwatch/internal/observability"
	"github.com/hrygo/signalwatch/internal/profile"
	"github.com/hrygo/signalwatch/server/middleware"
	apiv1 "github.com/hrygo/signalwatch/server/router/api/v1"
	"github.com/hrygo/signalwatch/server/service/event"
	"github.com/hrygo/signalwatch/server/service/watchlist"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Profile *profile.Profile
	Metrics *observability.Metrics

	echoServer   *echo.Echo
	apiV1Service *apiv1.APIV1Service
	logger       *slog.Logger
	stops        []func()
}

// Options carries the already-built dependencies of the server.
type Options struct {
	Watchlists watchlist.Service
	Events     event.Service
	// Cache is reported by the health endpoint. Leave nil when caching is off.
	Cache   apiv1.CacheStats
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

func NewServer(_ context.Context, profile *profile.Profile, opts Options) (*Server, error) {
	if opts.Watchlists == nil || opts.Events == nil {
		return nil, errors.New("watchlist and event services are required")
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		Profile: profile,
		Metrics: opts.Metrics,
		logger:  opts.Logger,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = apiv1.HTTPErrorHandler
	s.echoServer = echoServer

	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(middleware.CorrelationID(opts.Logger))
	echoServer.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			failed := v.Status >= http.StatusInternalServerError
			s.Metrics.RecordRequest(v.Method+" "+v.RoutePath, v.Latency, failed)

			attrs := []slog.Attr{
				slog.String(observability.LogFieldMethod, v.Method),
				slog.String(observability.LogFieldPath, v.URIPath),
				slog.Int(observability.LogFieldStatus, v.Status),
				slog.Int64(observability.LogFieldDuration, v.Latency.Milliseconds()),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			if failed {
				level = slog.LevelError
			}
			observability.Logger(c.Request().Context()).LogAttrs(c.Request().Context(), level, "request completed", attrs...)
			return nil
		},
	}))
	echoServer.Use(echomiddleware.Secure())
	echoServer.Use(echomiddleware.CORS())
	echoServer.Use(echomiddleware.BodyLimit("1M"))

	general := middleware.GeneralRateLimitConfig(profile.RateLimitGeneral)
	general.Skipper = func(c echo.Context) bool {
		return !strings.HasPrefix(c.Request().URL.Path, "/api/")
	}
	generalLimit, stopGeneral := middleware.RateLimit(general)
	s.stops = append(s.stops, stopGeneral)
	echoServer.Use(generalLimit)

	s.apiV1Service = apiv1.NewAPIV1Service(profile, opts.Watchlists, opts.Events, opts.Cache, opts.Metrics)
	s.apiV1Service.Register(echoServer)

	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start serves until Shutdown is called. It returns nil on a clean shutdown.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server started", slog.String("address", address), slog.String("mode", s.Profile.Mode))
	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown drains in-flight requests and stops the rate limiter sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.echoServer.Shutdown(ctx)
	for _, stop := range s.stops {
		stop()
	}
	s.stops = nil
	s.apiV1Service.Close()

	if err != nil {
		return errors.Wrap(err, "failed to shutdown server")
	}
	s.logger.Info("server stopped")
	return nil
}
