package httpapi

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/auth"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/internal/reqctx"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

// tokenContextKey is where echo-jwt stores the parsed token.
const tokenContextKey = "user"

// unauthorizedBody is the uniform response for a missing or invalid token.
var unauthorizedBody = ErrorResponse{Message: "Unauthorized"}

// RequestContext assigns a request id and stores it in the request context.
func RequestContext() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, requestID string) {
			ctx := reqctx.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}

// RequestLogger logs each request through zap and records its duration.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		HandleError:  true,
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRoutePath: true,
		LogRemoteIP:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			observer.ObserveHTTPRequest(v.Method, v.RoutePath, v.Status, v.Latency)

			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			reqLog := logger.FromContextOr(c.Request().Context(), log)
			if requestID, err := reqctx.FromRequestIDContext(c.Request().Context()); err == nil {
				reqLog = reqLog.With(zap.String("request_id", requestID))
			}
			if userID, err := reqctx.UserIDFromContext(c.Request().Context()); err == nil {
				reqLog = reqLog.With(zap.String("user_id", userID))
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				reqLog.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Status >= http.StatusBadRequest:
				reqLog.Warn("request", fields...)
			default:
				reqLog.Info("request", fields...)
			}
			return nil
		},
	})
}

// JWTMiddleware validates HS256 bearer tokens and puts the subject into the
// request context. Requests for which skip returns true pass through.
// A missing, invalid or subject-less token gets a uniform 401.
func JWTMiddleware(secret string, skip middleware.Skipper) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		Skipper:       skip,
		SigningKey:    []byte(secret),
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
		SuccessHandler: func(c echo.Context) {
			token, _ := c.Get(tokenContextKey).(*jwt.Token)
			userID, err := auth.UserIDFromToken(token)
			if err != nil {
				return
			}
			ctx := reqctx.WithUserID(c.Request().Context(), userID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, unauthorizedBody)
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		requireSubject := func(c echo.Context) error {
			if !skip(c) {
				if _, err := reqctx.UserIDFromContext(c.Request().Context()); err != nil {
					return c.JSON(http.StatusUnauthorized, unauthorizedBody)
				}
			}
			return next(c)
		}
		return verify(requireSubject)
	}
}
