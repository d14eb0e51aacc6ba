package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bjaus/bridge"
)

// Server serves one App over HTTP until its context ends.
type Server struct {
	app *bridge.App
	cfg config
}

// New returns a Server for app.
func New(app *bridge.App, opts ...Option) *Server {
	return &Server{app: app, cfg: newConfig(opts)}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.addr }

// Handler returns the net/http handler the server uses.
func (s *Server) Handler() http.Handler { return httpHandler(s.app, s.cfg) }

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. The listener is
// closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.cfg.logger.InfoContext(ctx, "server listening", "addr", ln.Addr().String(), "engine", s.cfg.engine.String())
	switch s.cfg.engine {
	case EngineFastHTTP:
		return s.serveFast(ctx, ln)
	default:
		return s.serveHTTP(ctx, ln)
	}
}

func (s *Server) serveHTTP(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.cfg.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) serveFast(ctx context.Context, ln net.Listener) error {
	srv := newFastServer(s.app, s.cfg)
	ln = &onceCloseListener{Listener: ln}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.cfg.logger.Info("server shutting down")
		// Serve may not have registered ln yet; closing it unblocks Accept.
		_ = ln.Close()

		done := make(chan error, 1)
		go func() {
			done <- srv.Shutdown()
		}()

		timer := time.NewTimer(s.cfg.shutdownTimeout)
		defer timer.Stop()
		select {
		case err := <-done:
			return err
		case <-timer.C:
			return fmt.Errorf("shutdown: %w", context.DeadlineExceeded)
		}
	}
}

// IsClosed reports whether err only signals a normal server stop.
func IsClosed(err error) bool {
	return err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed)
}

// onceCloseListener lets both Serve's caller and fasthttp's Shutdown close
// the listener.
type onceCloseListener struct {
	net.Listener
	once sync.Once
	err  error
}

func (l *onceCloseListener) Close() error {
	l.once.Do(func() { l.err = l.Listener.Close() })
	return l.err
}
