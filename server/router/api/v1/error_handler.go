package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/signalwatch/internal/observability"
	apierrors "github.com/hrygo/signalwatch/server/internal/errors"
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success       bool   `json:"success"`
	Code          int    `json:"code"`
	ErrorCode     string `json:"errorCode"`
	Errors        string `json:"errors"`
	CorrelationID string `json:"correlationId"`
}

// HTTPErrorHandler renders every handler error as an ErrorResponse.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	apiErr := apierrors.FromError(err)
	status := apiErr.HTTPStatus()
	ctx := c.Request().Context()

	logger := observability.Logger(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String(observability.LogFieldErrorCode, string(apiErr.Code)),
			slog.String("error", err.Error()))
	} else {
		logger.Debug("request rejected",
			slog.String(observability.LogFieldErrorCode, string(apiErr.Code)),
			slog.String("error", apiErr.Message))
	}

	message := apiErr.Message
	if apiErr.Code == apierrors.ErrCodeInvalidArgument && apiErr.Cause != nil {
		message = message + ": " + apiErr.Cause.Error()
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorResponse{
			Success:       false,
			Code:          status,
			ErrorCode:     string(apiErr.Code),
			Errors:        message,
			CorrelationID: observability.CorrelationID(ctx),
		})
	}
	if err != nil {
		logger.Error("failed to write error response", slog.String("error", err.Error()))
	}
}
