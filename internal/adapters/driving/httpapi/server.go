// Package httpapi exposes upload, file, link and query operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// OwnerHeader carries the already-authenticated caller identity.
const OwnerHeader = "X-Owner-ID"

// DefaultBodyLimit caps upload size.
const DefaultBodyLimit = "32M"

const shutdownTimeout = 10 * time.Second

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	Ingest driving.IngestService
	Query  driving.QueryService
	Files  driving.FileService

	// Links is optional. Without it the link routes are not registered.
	Links driving.LinkService
}

// Validate ensures all ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Ingest == nil || p.Query == nil || p.Files == nil {
		return errors.New("httpapi: ingest, query and file services are required")
	}
	return nil
}

// Server is the HTTP adapter.
type Server struct {
	echo       *echo.Echo
	handler    *Handler
	bodyLimit  string
	requestLog bool
}

// Option configures a Server.
type Option func(*Server)

// WithBodyLimit sets the maximum request body, e.g. "64M".
func WithBodyLimit(limit string) Option {
	return func(s *Server) {
		if limit != "" {
			s.bodyLimit = limit
		}
	}
}

// WithRequestLog enables per-request access logging.
func WithRequestLog(enabled bool) Option {
	return func(s *Server) { s.requestLog = enabled }
}

// NewServer builds the echo instance and registers routes.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		echo:      echo.New(),
		handler:   NewHandler(ports),
		bodyLimit: DefaultBodyLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !s.requestLog || c.Path() == "/api/v1/health"
		},
		Output: logger.Writer(),
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
	}))
	e.Use(middleware.BodyLimit(s.bodyLimit))

	RegisterRoutes(e, s.handler)
	return s, nil
}

// RegisterRoutes wires handlers under /api/v1.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	api := e.Group("/api/v1")
	api.GET("/health", h.HandleHealth)

	files := api.Group("/files", RequireOwner)
	files.POST("", h.HandleUpload)
	files.GET("", h.HandleListFiles)
	files.GET("/categories", h.HandleCategories)
	files.GET("/:id", h.HandleGetFile)
	files.DELETE("/:id", h.HandleDeleteFile)
	files.POST("/:id/reindex", h.HandleReindex)

	api.POST("/query", h.HandleQuery, RequireOwner)

	if h.ports.Links == nil {
		return
	}
	links := api.Group("/links", RequireOwner)
	links.POST("", h.HandleCreateLink)
	links.GET("", h.HandleListLinks)
	links.GET("/:token", h.HandleGetLink)
	links.PATCH("/:token", h.HandleUpdateLink)
	links.DELETE("/:token", h.HandleDeleteLink)

	// Public: the token is the credential.
	api.GET("/upload-to/:token", h.HandleLinkInfo)
	api.POST("/upload-to/:token", h.HandleLinkUpload)
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
