package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"estimategenie/edgerelay/pkg/config"
)

// Server runs the relay listener and, optionally, the admin listener.
type Server struct {
	config       *config.ServerConfig
	handler      http.Handler
	admin        http.Handler
	adminAddress string
	tlsConfig    *tls.Config
	logger       *slog.Logger

	httpServer  *http.Server
	adminServer *http.Server
	addr        net.Addr
	adminAddr   net.Addr

	shutdownChan chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
	ready        chan struct{}
	mu           sync.RWMutex
	isRunning    bool
}

// Options configures the optional parts of a Server.
type Options struct {
	// Admin serves operational endpoints (metrics, liveness) on AdminAddress.
	// Nil disables the admin listener.
	Admin        http.Handler
	AdminAddress string

	// TLS serves the relay listener over HTTPS when non-nil.
	TLS *tls.Config

	Logger *slog.Logger
}

// NewServer creates a server for handler, which is normally the output of
// Handler.
func NewServer(cfg *config.ServerConfig, handler http.Handler, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:       cfg,
		handler:      handler,
		admin:        opts.Admin,
		adminAddress: opts.AdminAddress,
		tlsConfig:    opts.TLS,
		logger:       logger,
		shutdownChan: make(chan struct{}),
		ready:        make(chan struct{}),
	}
}

// Start binds the listeners and serves until ctx is cancelled, SIGINT or
// SIGTERM arrives, Stop is called, or a listener fails. It then shuts down
// gracefully within server.shutdown_timeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	var adminLn net.Listener
	if s.admin != nil {
		adminLn, err = net.Listen("tcp", s.adminAddress)
		if err != nil {
			ln.Close()
			s.mu.Unlock()
			return fmt.Errorf("failed to listen on admin address %s: %w", s.adminAddress, err)
		}
	}

	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		TLSConfig:      s.tlsConfig,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.addr = ln.Addr()

	if adminLn != nil {
		s.adminServer = &http.Server{
			Handler:           s.admin,
			ReadHeaderTimeout: s.config.ReadTimeout,
			ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
		}
		s.adminAddr = adminLn.Addr()
	}

	s.isRunning = true
	s.mu.Unlock()
	close(s.ready)

	errChan := make(chan error, 2)
	go func() {
		s.logger.Info("starting relay server",
			"address", s.addr.String(),
			"tls_enabled", s.tlsConfig != nil,
		)

		var err error
		if s.tlsConfig != nil {
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	if adminLn != nil {
		go func() {
			s.logger.Info("starting admin server", "address", s.adminAddr.String())
			if err := s.adminServer.Serve(adminLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("admin server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		if shutdownErr := s.Shutdown(context.Background()); shutdownErr != nil {
			s.logger.Error("error during shutdown", "error", shutdownErr)
		}
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down and return.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownChan) })
}

// Ready is closed once the listeners are bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Shutdown gracefully shuts down both listeners, waiting for in-flight
// requests up to server.shutdown_timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		if s.adminServer != nil {
			if err := s.adminServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during admin server shutdown", "error", err)
				shutdownErr = errors.Join(shutdownErr, fmt.Errorf("admin server shutdown error: %w", err))
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("relay server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound relay address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// AdminAddr returns the bound admin address, or "" when there is none.
func (s *Server) AdminAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.adminAddr == nil {
		return ""
	}
	return s.adminAddr.String()
}
