package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/engine"
	"github.com/gateworks/periphmon/internal/logging"
)

// shutdownTimeout bounds the graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

// Config holds the feed server configuration
type Config struct {
	Addr string // listen address, e.g. ":8080"
}

// Server is the read-only network feed of a catalog
type Server struct {
	config *Config
	cat    *catalog.Catalog
	eng    *engine.Engine
	hub    *Hub
	http   *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New creates a feed server. The engine must not be started yet; Serve
// starts and stops it.
func New(config *Config, cat *catalog.Catalog, eng *engine.Engine) *Server {
	s := &Server{
		config: config,
		cat:    cat,
		eng:    eng,
		hub:    NewHub(cat, eng.Dispatcher().Batches(), logging.Named("feed")),
	}
	s.http = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Hub returns the hub serving this feed
func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr returns the address the server listens on, or "" before Serve
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the feed on ln until ctx is cancelled. Every record is marked
// visible, since the feed has no notion of a screen.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for _, rec := range s.cat.Records() {
		rec.SetVisible(true)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	if err := s.eng.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to start pollers: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	logging.Info("Feed server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("devices", s.cat.Len()),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info("Shutting down feed server")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("feed server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.http.Close()
	}

	s.eng.Stop()
	stopHub()
	<-s.hub.Done()

	logging.Sync()
	return serveErr
}
