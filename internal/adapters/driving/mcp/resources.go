package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

const uriScheme = "grabdocs://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "files",
		Name:        "files",
		Description: "All files uploaded by the configured owner",
		MIMEType:    "application/json",
	}, s.handleFilesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "categories",
		Name:        "categories",
		Description: "File counts per kind",
		MIMEType:    "application/json",
	}, s.handleCategoriesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "files/{fileId}",
		Name:        "file",
		Description: "Metadata of a single uploaded file",
		MIMEType:    "application/json",
	}, s.handleFileResource)
}

func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records, err := s.ports.Files.List(ctx, s.owner, "")
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	out := make([]FileOutput, len(records))
	for i := range records {
		out[i] = newFileOutput(&records[i])
	}
	return jsonResource(req.Params.URI, out)
}

func (s *Server) handleCategoriesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	counts, err := s.ports.Files.Categories(ctx, s.owner)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	out := make(map[string]int, len(counts))
	for k, n := range counts {
		out[k.String()] = n
	}
	return jsonResource(req.Params.URI, out)
}

func (s *Server) handleFileResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractFileID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rec, err := s.ports.Files.Get(ctx, s.owner, domain.FileID(id))
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting file: %w", err)
	}
	return jsonResource(req.Params.URI, newFileOutput(rec))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractFileID extracts the id from a URI like grabdocs://files/{fileId}.
func extractFileID(uri string) string {
	const prefix = uriScheme + "files/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
