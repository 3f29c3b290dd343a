package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	agentcore "github.com/mohammad-safakhou/scout/internal/agent/core"
	"github.com/mohammad-safakhou/scout/internal/runtime"
	"go.uber.org/zap"
)

// Answerer runs one research session.
type Answerer interface {
	Run(ctx context.Context, query string) (agentcore.Result, error)
}

// Options configures the HTTP surface. An empty Secret disables auth.
type Options struct {
	Address        string
	Secret         []byte
	Metrics        http.Handler
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// Server exposes the research loop over HTTP.
type Server struct {
	echo   *echo.Echo
	opts   Options
	logger *zap.Logger
}

func New(answerer Answerer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler(opts.Logger)

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	api := e.Group("/api")
	if len(opts.Secret) > 0 {
		api.Use(runtime.EchoAuthMiddleware(opts.Secret), runtime.RequireScopes(runtime.ScopeAnswer))
	}
	ah := &AnswerHandler{Answerer: answerer, Timeout: opts.RequestTimeout, Logger: opts.Logger}
	ah.Register(api)

	return &Server{echo: e, opts: opts, logger: opts.Logger}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.opts.Address))
		errCh <- s.echo.Start(s.opts.Address)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Warn("http error",
			zap.Int("status", code),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("remote", c.RealIP()),
			zap.Error(err),
		)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
}
