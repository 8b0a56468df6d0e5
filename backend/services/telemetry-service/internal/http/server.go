package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Server owns the telemetry REST listener.
type Server struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// Option customises a Server.
type Option func(*Server)

// WithMiddleware wraps the handler; the first middleware is the outermost.
func WithMiddleware(middlewares ...func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		h := s.server.Handler
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		s.server.Handler = h
	}
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer builds the HTTP server around handler.
func NewServer(addr string, handler http.Handler, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
			ErrorLog:     zap.NewStdLog(logger.Named("http")),
		},
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run listens on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln, then drains in-flight requests once ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting telemetry http server", zap.String("addr", ln.Addr().String()))
		errCh <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("stopping telemetry http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
