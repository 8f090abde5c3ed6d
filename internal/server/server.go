// Package server exposes the class builder over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/classes"
	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/dispatcher"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/internal/media"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const shutdownTimeout = 10 * time.Second

// Dependencies holds all dependencies for the HTTP server.
// Media and Metrics are optional.
type Dependencies struct {
	Classes     *classes.Service
	Dispatcher  *dispatcher.Dispatcher
	Media       media.Store
	Verifier    *auth.Verifier
	Metrics     http.Handler
	LogManager  *logging.SlogManager
	Config      config.ServerConfig
	ServiceName string

	// FilesDir is served read-only under FilesPath when both are set
	FilesDir  string
	FilesPath string
}

// Server is the class builder HTTP API.
type Server struct {
	deps   Dependencies
	router *gin.Engine
}

// New builds the router.
func New(deps Dependencies) (*Server, error) {
	if deps.Classes == nil {
		return nil, errors.New("server: classes service is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("server: dispatcher is required")
	}
	if deps.Verifier == nil {
		deps.Verifier = auth.NewVerifier("", "")
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.ServiceName == "" {
		deps.ServiceName = logging.DefaultServiceName
	}

	s := &Server{deps: deps}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(s.deps.ServiceName))
	r.Use(requestLogger(s.deps.LogManager.Logger()))
	r.Use(rateLimit(s.deps.Config.RateLimit, s.deps.Config.RateBurst))

	r.GET("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}
	if s.deps.FilesDir != "" && s.deps.FilesPath != "" {
		r.Static(s.deps.FilesPath, s.deps.FilesDir)
	}

	api := r.Group("/api", auth.Middleware(s.deps.Verifier))
	api.GET("/classes", s.handleList)
	api.POST("/classes", s.handleNew)
	api.POST("/classes/validate", s.handleValidate)
	api.GET("/classes/:id", s.handleGet)
	api.PUT("/classes/:id", s.handleSave)
	api.DELETE("/classes/:id", s.handleDelete)
	api.GET("/classes/:id/qrcode", s.handleQRCode)
	api.POST("/editor/commands", s.handleCommand)
	api.GET("/editor/commands", s.handleCommandList)
	api.POST("/files/upload", s.handleUpload)

	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.deps.Config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.LogManager.Logger().Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to serve on %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}
