package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// IngestInput is the input schema for the ingest_file tool.
type IngestInput struct {
	Path     string `json:"path,omitempty" jsonschema:"local path of a file to ingest"`
	Content  string `json:"content,omitempty" jsonschema:"raw text content to ingest when no path is given"`
	Filename string `json:"filename,omitempty" jsonschema:"original filename, used for type detection and display"`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"declared MIME type, detected from content when empty"`
}

// IngestOutput is the output schema for the ingest_file tool.
type IngestOutput struct {
	FileID        string   `json:"file_id"`
	Kind          string   `json:"kind"`
	State         string   `json:"state"`
	FailedStage   string   `json:"failed_stage,omitempty"`
	ChunksIndexed int      `json:"chunks_indexed"`
	ChunksSkipped int      `json:"chunks_skipped"`
	Warnings      []string `json:"warnings,omitempty"`
}

// QueryInput is the input schema for the query_documents tool.
type QueryInput struct {
	Query    string `json:"query" jsonschema:"the question to answer from uploaded files"`
	FileIDs  []any  `json:"file_ids,omitempty" jsonschema:"restrict retrieval to these file ids, as numbers or decimal strings"`
	Kind     string `json:"kind,omitempty" jsonschema:"restrict retrieval to one kind: documents, receipts or forms"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	Generate bool   `json:"generate,omitempty" jsonschema:"also generate an answer with the configured LLM"`
}

// QueryOutput is the output schema for the query_documents tool.
type QueryOutput struct {
	Answer             string        `json:"answer,omitempty"`
	IsDocumentSpecific bool          `json:"is_document_specific"`
	QueryType          string        `json:"query_type"`
	Chunks             []ChunkOutput `json:"chunks"`
}

// ChunkOutput is one retrieved chunk.
type ChunkOutput struct {
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	Kind     string  `json:"kind"`
	Ordinal  int     `json:"ordinal"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// ListInput is the input schema for the list_files tool.
type ListInput struct {
	Category string `json:"category,omitempty" jsonschema:"kind filter such as receipts or all"`
}

// ListOutput is the output schema for the list_files tool.
type ListOutput struct {
	Files []FileOutput `json:"files"`
	Count int          `json:"count"`
}

// FileOutput summarizes a stored file.
type FileOutput struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Chunks    int       `json:"chunks"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

func newFileOutput(r *domain.FileRecord) FileOutput {
	return FileOutput{
		ID:        r.ID.String(),
		Filename:  r.OriginalFilename,
		Kind:      r.Kind.String(),
		Status:    r.Status.String(),
		Chunks:    r.ChunkCount,
		SizeBytes: r.SizeBytes,
		CreatedAt: r.CreatedAt,
	}
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_file",
		Description: "Store a file, classify it and index its text for retrieval",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Retrieve passages from uploaded files, optionally limited to specific files or a kind",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: "List uploaded files, optionally filtered by category",
	}, s.handleList)
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	req := domain.IngestRequest{
		OwnerID:  s.owner,
		Filename: input.Filename,
		MIMEType: input.MIMEType,
	}

	switch {
	case input.Path != "":
		data, err := os.ReadFile(input.Path)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("read %s: %w", input.Path, err)
		}
		req.Blob = data
		if req.Filename == "" {
			req.Filename = filepath.Base(input.Path)
		}
	case input.Content != "":
		req.Blob = []byte(input.Content)
		if req.Filename == "" {
			req.Filename = "inline.txt"
		}
	default:
		return nil, IngestOutput{}, ErrNoContent
	}

	res, err := s.ports.Ingest.Ingest(ctx, req)
	if err != nil {
		return nil, IngestOutput{}, err
	}
	s.log.Debug("ingested %s as file %s (%s)", req.Filename, res.FileID, res.State)

	return nil, IngestOutput{
		FileID:        res.FileID.String(),
		Kind:          res.Kind.String(),
		State:         res.State.String(),
		FailedStage:   res.FailedStage.String(),
		ChunksIndexed: res.ChunksIndexed,
		ChunksSkipped: res.ChunksSkipped,
		Warnings:      res.Warnings,
	}, nil
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	parsed, err := domain.ParseFileIDs(input.FileIDs)
	if err != nil {
		return nil, QueryOutput{}, err
	}
	var ids []any
	for _, id := range parsed {
		ids = append(ids, id.String())
	}

	res, err := s.ports.Query.Query(ctx, domain.QueryRequest{
		OwnerID:  s.owner,
		Text:     input.Query,
		FileIDs:  ids,
		Kind:     input.Kind,
		TopK:     input.TopK,
		Generate: input.Generate,
	})
	if err != nil {
		return nil, QueryOutput{}, err
	}

	out := QueryOutput{
		Answer:             res.Answer,
		IsDocumentSpecific: res.IsDocumentSpecific,
		QueryType:          string(res.QueryType),
		Chunks:             make([]ChunkOutput, len(res.AnswerContext)),
	}
	for i, rc := range res.AnswerContext {
		name := rc.File.OriginalFilename
		if name == "" {
			name = rc.Chunk.Filename
		}
		out.Chunks[i] = ChunkOutput{
			FileID:   rc.Chunk.FileID.String(),
			Filename: name,
			Kind:     rc.Chunk.Kind.String(),
			Ordinal:  rc.Chunk.Ordinal,
			Score:    rc.Score,
			Text:     rc.Chunk.Text,
		}
	}
	return nil, out, nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	records, err := s.ports.Files.List(ctx, s.owner, input.Category)
	if err != nil {
		return nil, ListOutput{}, err
	}

	out := ListOutput{Files: make([]FileOutput, len(records)), Count: len(records)}
	for i := range records {
		out.Files[i] = newFileOutput(&records[i])
	}
	return nil, out, nil
}
