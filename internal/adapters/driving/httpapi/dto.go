package httpapi

import (
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// FileResponse is the JSON view of a FileRecord.
type FileResponse struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	StoredFilename   string    `json:"stored_filename"`
	MIMEType         string    `json:"mime_type"`
	SizeBytes        int64     `json:"size_bytes"`
	Kind             string    `json:"kind"`
	ChunkCount       int       `json:"chunk_count"`
	Status           string    `json:"status"`
	FailedStage      string    `json:"failed_stage,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newFileResponse(r *domain.FileRecord) FileResponse {
	return FileResponse{
		ID:               r.ID.String(),
		OriginalFilename: r.OriginalFilename,
		StoredFilename:   r.StoredFilename,
		MIMEType:         r.MIMEType,
		SizeBytes:        r.SizeBytes,
		Kind:             r.Kind.String(),
		ChunkCount:       r.ChunkCount,
		Status:           r.Status.String(),
		FailedStage:      r.FailedStage.String(),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// FileListResponse wraps a listing.
type FileListResponse struct {
	Files []FileResponse `json:"files"`
	Count int            `json:"count"`
}

// CategoryResponse counts files of one kind.
type CategoryResponse struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// IngestResponse reports an upload or reindex.
type IngestResponse struct {
	FileID        string   `json:"file_id"`
	Kind          string   `json:"kind"`
	State         string   `json:"state"`
	FailedStage   string   `json:"failed_stage,omitempty"`
	ChunksIndexed int      `json:"chunks_indexed"`
	ChunksSkipped int      `json:"chunks_skipped"`
	Partial       bool     `json:"partial"`
	Warnings      []string `json:"warnings,omitempty"`
}

func newIngestResponse(r *domain.IngestResult) IngestResponse {
	return IngestResponse{
		FileID:        r.FileID.String(),
		Kind:          r.Kind.String(),
		State:         r.State.String(),
		FailedStage:   r.FailedStage.String(),
		ChunksIndexed: r.ChunksIndexed,
		ChunksSkipped: r.ChunksSkipped,
		Partial:       r.Partial,
		Warnings:      r.Warnings,
	}
}

// QueryRequest is the body of POST /query.
// FileIDs may hold numbers or numeric strings.
type QueryRequest struct {
	Query    string `json:"query"`
	FileIDs  []any  `json:"file_ids,omitempty"`
	FileID   any    `json:"file_id,omitempty"`
	Kind     string `json:"kind,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	Generate bool   `json:"generate,omitempty"`
}

func (q QueryRequest) toDomain(owner string) domain.QueryRequest {
	ids := q.FileIDs
	if q.FileID != nil {
		ids = append([]any{q.FileID}, ids...)
	}
	return domain.QueryRequest{
		OwnerID:  owner,
		Text:     q.Query,
		FileIDs:  ids,
		Kind:     q.Kind,
		TopK:     q.TopK,
		Generate: q.Generate,
	}
}

// ChunkResponse is one retrieved chunk.
type ChunkResponse struct {
	ChunkID  string  `json:"chunk_id"`
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	Kind     string  `json:"kind"`
	Ordinal  int     `json:"ordinal"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// FiltersResponse echoes the filter a query ran with.
type FiltersResponse struct {
	FileIDs []string `json:"file_ids,omitempty"`
	Kind    string   `json:"kind,omitempty"`
}

// QueryResponse is the answer to a query.
type QueryResponse struct {
	Answer             string          `json:"answer,omitempty"`
	IsDocumentSpecific bool            `json:"is_document_specific"`
	QueryType          string          `json:"query_type"`
	FiltersApplied     FiltersResponse `json:"filters_applied"`
	Chunks             []ChunkResponse `json:"chunks"`
}

func newQueryResponse(r *domain.QueryResult) QueryResponse {
	resp := QueryResponse{
		Answer:             r.Answer,
		IsDocumentSpecific: r.IsDocumentSpecific,
		QueryType:          string(r.QueryType),
		Chunks:             make([]ChunkResponse, 0, len(r.AnswerContext)),
	}
	for _, id := range r.FiltersApplied.FileIDs {
		resp.FiltersApplied.FileIDs = append(resp.FiltersApplied.FileIDs, id.String())
	}
	if r.FiltersApplied.Kind != nil {
		resp.FiltersApplied.Kind = r.FiltersApplied.Kind.String()
	}
	for _, rc := range r.AnswerContext {
		filename := rc.File.OriginalFilename
		if filename == "" {
			filename = rc.Chunk.Filename
		}
		resp.Chunks = append(resp.Chunks, ChunkResponse{
			ChunkID:  rc.Chunk.ID,
			FileID:   rc.Chunk.FileID.String(),
			Filename: filename,
			Kind:     rc.Chunk.Kind.String(),
			Ordinal:  rc.Chunk.Ordinal,
			Score:    rc.Score,
			Text:     rc.Chunk.Text,
		})
	}
	return resp
}

// CreateLinkRequest is the body of POST /links. Omitted optional fields
// take the link defaults: unlimited uploads and no expiry.
type CreateLinkRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	MaxUploads    *int   `json:"max_uploads,omitempty"`
	ExpiresInDays *int   `json:"expires_in_days,omitempty"`
}

func (r CreateLinkRequest) toDomain(owner string) domain.NewUploadLink {
	return domain.NewUploadLink{
		OwnerID:       owner,
		Name:          r.Name,
		Description:   r.Description,
		MaxUploads:    r.MaxUploads,
		ExpiresInDays: r.ExpiresInDays,
	}
}

// UpdateLinkRequest is the body of PATCH /links/:token.
type UpdateLinkRequest struct {
	IsActive *bool `json:"is_active"`
}

// LinkResponse is the owner's view of an upload link.
type LinkResponse struct {
	Token          string     `json:"token"`
	UploadPath     string     `json:"upload_path"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	MaxUploads     *int       `json:"max_uploads"`
	CurrentUploads int        `json:"current_uploads"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newLinkResponse(l *domain.UploadLink) LinkResponse {
	return LinkResponse{
		Token:          l.Token,
		UploadPath:     "/api/v1/upload-to/" + l.Token,
		Name:           l.Name,
		Description:    l.Description,
		MaxUploads:     maxUploads(l),
		CurrentUploads: l.CurrentUploads,
		IsActive:       l.Active,
		ExpiresAt:      l.ExpiresAt,
		CreatedAt:      l.CreatedAt,
	}
}

// LinkListResponse wraps a listing.
type LinkListResponse struct {
	Links []LinkResponse `json:"links"`
	Count int            `json:"count"`
}

// PublicLinkResponse is what an uploader sees. It omits the owner.
type PublicLinkResponse struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	CurrentUploads int        `json:"current_uploads"`
	MaxUploads     *int       `json:"max_uploads"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

func newPublicLinkResponse(l *domain.UploadLink) PublicLinkResponse {
	return PublicLinkResponse{
		Name:           l.Name,
		Description:    l.Description,
		CurrentUploads: l.CurrentUploads,
		MaxUploads:     maxUploads(l),
		ExpiresAt:      l.ExpiresAt,
	}
}

// maxUploads renders an unlimited link as null.
func maxUploads(l *domain.UploadLink) *int {
	if l.MaxUploads == 0 {
		return nil
	}
	n := l.MaxUploads
	return &n
}
