package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/grabdocs/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// DefaultOwner is used when no owner is configured.
const DefaultOwner = "local"

// Server is the MCP server for grabdocs. Every tool call acts on behalf of
// a single owner fixed at construction.
type Server struct {
	ports  *Ports
	owner  string
	server *mcp.Server
	log    logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithOwner sets the owner id tool calls act for.
func WithOwner(owner string) Option {
	return func(s *Server) {
		if o := strings.TrimSpace(owner); o != "" {
			s.owner = o
		}
	}
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if ports == nil {
		return nil, fmt.Errorf("validating ports: %w", ErrMissingIngestService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "grabdocs",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		owner:  DefaultOwner,
		server: mcp.NewServer(impl, nil),
		log:    logger.With("mcp"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Owner returns the owner id tool calls act for.
func (s *Server) Owner() string { return s.owner }

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over streamable HTTP on addr.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown: %v", err)
		}
	}()

	s.log.Info("serving MCP over HTTP on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
