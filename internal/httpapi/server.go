// Package httpapi exposes the lead outreach operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Handler registers routes on the Echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

// Options configures the HTTP server.
type Options struct {
	Port        int
	JWTSecret   string
	Development bool
}

// Server is the HTTP server (Echo) with JWT middleware and registered handlers.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *zap.Logger
}

// publicPaths are reachable without a bearer token.
var publicPaths = map[string]struct{}{
	"/health":               {},
	"/ready":                {},
	"/metrics":              {},
	"/auth/signup":          {},
	"/auth/login":           {},
	"/api/webhooks/mailgun": {},
}

// isPublic reports whether a request skips bearer authentication.
func isPublic(c echo.Context) bool {
	path := strings.TrimRight(c.Request().URL.Path, "/")
	_, ok := publicPaths[path]
	return ok
}

// NewServer builds the Echo server with recovery, request ids, request
// logging, JWT auth and the given handlers.
func NewServer(log *zap.Logger, opts Options, handlers ...Handler) *Server {
	addr := ":8080"
	if opts.Port > 0 {
		addr = ":" + strconv.Itoa(opts.Port)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewErrorHandler(opts.Development)

	e.Use(middleware.Recover())
	e.Use(RequestContext())
	e.Use(RequestLogger(log))
	e.Use(JWTMiddleware(opts.JWTSecret, isPublic))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo:   e,
		addr:   addr,
		logger: log.Named("http"),
	}
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.addr))
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server using the given context.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.echo.Shutdown(ctx)
}
