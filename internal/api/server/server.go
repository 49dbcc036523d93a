// Package server assembles the HTTP surface: router, middleware and
// lifecycle.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxledger/internal/api/middleware"
	"voxledger/internal/api/v1/handlers"
	"voxledger/internal/api/v1/routes"
	"voxledger/internal/config"
)

// Server owns the gin engine and the underlying http.Server.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger *slog.Logger
}

// New builds the router with the standard middleware chain and mounts
// the v1 API, /health and /metrics.
func New(cfg config.ServerConfig, jobs *handlers.JobHandler, users *handlers.UserHandler, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestID())
	engine.Use(middleware.StructuredLogging(logger))
	engine.Use(middleware.ErrorHandler(logger))
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	routes.Register(v1, jobs, users)

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      engine,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // uploads and report downloads
			IdleTimeout:  2 * time.Minute,
		},
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
