// Package server runs the wishlist HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Options tunes the underlying http.Server
type Options struct {
	ReadHeaderTimeout time.Duration
	// IdleTimeout closes keep-alive connections that stay quiet this long
	IdleTimeout time.Duration
}

// Server manages the HTTP listener for the API
type Server struct {
	addr     string
	handler  http.Handler
	opts     Options
	log      logr.Logger
	mu       sync.RWMutex
	srv      *http.Server
	listener net.Listener
	running  bool
	doneCh   chan struct{}
	serveErr error
}

// NewServer creates a new server. addr follows net.Listen ("host:port", ":0" for any port).
func NewServer(addr string, handler http.Handler, opts Options, log logr.Logger) *Server {
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 2 * time.Minute
	}
	return &Server{
		addr:    addr,
		handler: handler,
		opts:    opts,
		log:     log,
	}
}

// Start binds the listener and serves in the background.
// Requests inherit ctx as their base context.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running on %s", s.listener.Addr())
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listener = listener
	s.running = true
	s.serveErr = nil
	s.doneCh = make(chan struct{})

	s.log.Info("server listening", "addr", listener.Addr().String())
	go s.serve(s.srv, listener, s.doneCh)
	return nil
}

func (s *Server) serve(srv *http.Server, listener net.Listener, done chan struct{}) {
	defer close(done)
	err := srv.Serve(listener)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.serveErr = err
		s.log.Error(err, "server stopped unexpectedly")
	}
}

// Stop shuts the server down gracefully, waiting for in-flight requests
// until ctx is done. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv, done := s.srv, s.doneCh
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if err != nil {
		// Deadline passed: drop remaining connections
		_ = srv.Close()
		err = fmt.Errorf("graceful shutdown incomplete: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
	}

	s.mu.Lock()
	s.srv = nil
	s.mu.Unlock()

	s.log.Info("server stopped")
	return err
}

// Done is closed when the serve loop exits
func (s *Server) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doneCh
}

// Err returns the error that ended the serve loop, if it ended on its own
func (s *Server) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serveErr
}

// IsRunning returns whether the server is currently serving
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address once started, or the configured address
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
