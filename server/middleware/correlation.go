package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/signalwatch/internal/observability"
)

// HeaderXCorrelationID carries the correlation id in both directions.
const HeaderXCorrelationID = "X-Correlation-Id"

// CorrelationID attaches a RequestContext to every request. The inbound
// X-Correlation-Id is reused when present and always echoed back.
func CorrelationID(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqCtx := observability.NewRequestContext(logger, req.Header.Get(HeaderXCorrelationID), req.Method, req.URL.Path)

			c.Response().Header().Set(HeaderXCorrelationID, reqCtx.CorrelationID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))
			return next(c)
		}
	}
}
