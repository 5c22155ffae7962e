// Package server exposes the analyzer and the knowledge base over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/sanhita/internal/analysis"
	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/metrics"
	"github.com/ppiankov/sanhita/internal/model"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Analyzer is the part of analysis.Analyzer the API needs
type Analyzer interface {
	Analyze(ctx context.Context, text string, opts analysis.Options) (*model.AnalysisResult, error)
	KnowledgeBase() *kb.KnowledgeBase
	DelegatedAvailable() bool
}

// Server represents the HTTP API with lifecycle management
type Server struct {
	router   *gin.Engine
	server   *http.Server
	analyzer Analyzer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	version  string
}

// New creates the server and registers its routes
func New(cfg model.ServerConfig, analyzer Analyzer, m *metrics.Metrics, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("server")

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))

	s := &Server{
		router:   router,
		analyzer: analyzer,
		metrics:  m,
		logger:   logger,
		version:  version,
	}
	s.routes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.POST("/analyze", s.analyze)
	v1.GET("/kb/substantive", s.substantive)
	v1.GET("/kb/procedural", s.procedural)
}

// Router returns the underlying Gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting HTTP server",
		zap.String("address", ln.Addr().String()),
		zap.String("version", s.version))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("HTTP server stopped gracefully")
	return <-errCh
}
