package graceful

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server runs an http.Server until its context ends, then drains it.
type Server struct {
	httpServer      *http.Server
	log             *slog.Logger
	shutdownTimeout time.Duration
	ready           chan net.Addr
}

// NewServer wraps srv. Zero shutdownTimeout means five seconds.
func NewServer(log *slog.Logger, srv *http.Server, shutdownTimeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}

	return &Server{
		httpServer:      srv,
		log:             log.With(slog.String("component", "http")),
		shutdownTimeout: shutdownTimeout,
		ready:           make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once the listener is open.
func (s *Server) Ready() <-chan net.Addr {
	return s.ready
}

// ListenAndServe binds the listener, serves until ctx is canceled and then
// shuts down within the configured timeout. Bind failures return at once.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.log.Info("http server listening", slog.String("addr", ln.Addr().String()))
	s.ready <- ln.Addr()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.log.Error("http server stopped", slog.Any("error", err))
		return err
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.log.Info("draining http server", slog.Duration("timeout", s.shutdownTimeout))
	if err := s.httpServer.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
