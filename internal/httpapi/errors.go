package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// statusFor maps an application error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate), errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrSignature):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, apperrors.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the reply for err. Client errors carry the error text;
// upstream errors carry the provider detail; anything else is generic unless
// development is set.
func errorBody(err error, status int, development bool) ErrorResponse {
	if upstream, ok := apperrors.AsUpstream(err); ok {
		return ErrorResponse{
			Message: fmt.Sprintf("%s request failed", upstream.Provider),
			Error:   upstream.Detail,
		}
	}
	if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		return ErrorResponse{Message: err.Error()}
	}
	body := ErrorResponse{Message: "Internal server error"}
	if development {
		body.Error = err.Error()
	}
	return body
}

// NewErrorHandler returns the echo error handler that renders ErrorResponse.
func NewErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			body   ErrorResponse
		)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			body = ErrorResponse{Message: fmt.Sprint(he.Message)}
			if status == http.StatusUnauthorized {
				body = unauthorizedBody
			}
		} else {
			status = statusFor(err)
			body = errorBody(err, status, development)
		}

		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request().Context()).Error("Request failed",
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.FromContext(c.Request().Context()).Error("Failed to write error response", zap.Error(writeErr))
		}
	}
}
