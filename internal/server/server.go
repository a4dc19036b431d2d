// Package server runs the daemon's HTTP listener.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options tunes the listener.
type Options struct {
	// MaxInFlight caps concurrently served requests. Zero means 100.
	MaxInFlight int
	// ShutdownTimeout bounds the graceful drain. Zero means 10s.
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

type Server struct {
	handler http.Handler
	opts    Options
	cert    *tls.Certificate

	mu       sync.Mutex
	listener net.Listener
}

func New(handler http.Handler, opts Options) *Server {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 100
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{handler: handler, opts: opts}
}

// SetCertificate enables TLS with cert.
func (s *Server) SetCertificate(cert tls.Certificate) {
	s.cert = &cert
}

// Addr returns the bound address once the server is listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cert != nil {
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{*s.cert},
			MinVersion:   tls.VersionTLS12,
		})
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler: limit(s.handler, s.opts.MaxInFlight),
		// Timeouts sized for light internal traffic.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("http server listening", zap.String("addr", ln.Addr().String()), zap.Bool("tls", s.cert != nil))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.opts.Logger.Error("clean shutdown failed", zap.Error(err))
		return err
	}
	<-errCh
	return nil
}

// limit admits at most n requests at a time. A request waiting for a slot
// is dropped with 503 if its client goes away first.
func limit(next http.Handler, n int) http.Handler {
	semaphore := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case semaphore <- struct{}{}:
		case <-r.Context().Done():
			http.Error(w, "server busy", http.StatusServiceUnavailable)
			return
		}
		defer func() { <-semaphore }()
		next.ServeHTTP(w, r)
	})
}
