package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/config"
)

// Server is the engine's HTTP server: routing, middleware chain, and
// graceful shutdown.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, service AuditService, logger *zap.Logger) *Server {
	handler := NewHandler(service, logger.Named("rest"), cfg.Version)

	mux := http.NewServeMux()

	v1 := http.NewServeMux()
	v1.HandleFunc("GET /health", handler.handleHealth)
	v1.HandleFunc("POST /audit/start", handler.handleStartAudit)
	v1.HandleFunc("POST /audit/quick", handler.handleQuickAudit)
	v1.HandleFunc("GET /audit/status", handler.handleAuditStatus)
	v1.HandleFunc("GET /audit/results", handler.handleAuditResults)
	v1.HandleFunc("GET /identity/{id}", handler.handleIdentityDetail)
	v1.HandleFunc("GET /source/status", handler.handleSourceStatus)
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))

	mux.Handle("/metrics", promhttp.Handler())

	middlewares := []Middleware{
		RequestIDMiddleware(),
		LoggingMiddleware(logger.Named("http")),
		RecoveryMiddleware(logger),
		TimeoutMiddleware(cfg.Server.WriteTimeout),
	}

	var h http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:        h,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: 1 << 20,
		},
	}
}

// Start runs the server until an error or a shutdown signal.
func (s *Server) Start() error {
	s.logger.Info("starting audit API server",
		zap.String("address", s.httpServer.Addr),
		zap.String("environment", s.cfg.Environment))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests within the configured timeout.
// A running background audit is not interrupted; its result is simply
// lost with the process.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Addr returns the listen address, for logging and tests.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
