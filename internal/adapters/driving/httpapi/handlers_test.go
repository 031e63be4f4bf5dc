package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/services"
)

type apiFixture struct {
	ingest *mockIngest
	query  *mockQuery
	files  *mockFiles
	links  *memory.LinkStore
	server *Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		ingest: &mockIngest{result: &domain.IngestResult{
			FileID:        "7",
			Kind:          domain.KindDocument,
			State:         domain.StateDone,
			ChunksIndexed: 3,
		}},
		query: &mockQuery{result: &domain.QueryResult{}},
		links: memory.NewLinkStore(),
		files: newMockFiles(
			record("1", "alice", "receipt.pdf", domain.KindReceipt),
			record("2", "alice", "essay.txt", domain.KindDocument),
			record("3", "bob", "form.txt", domain.KindForm),
		),
	}
	var err error
	f.server, err = NewServer(&Ports{
		Ingest: f.ingest,
		Query:  f.query,
		Files:  f.files,
		Links:  services.NewLinkService(f.links, f.ingest),
	})
	require.NoError(t, err)
	return f
}

func (f *apiFixture) do(req *http.Request, owner string) *httptest.ResponseRecorder {
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth_NoOwnerNeeded(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestUpload(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(multipartUpload(t, "Assignment1.txt", "text/plain", []byte("Assignment 1 submitted to Dr. X")), "alice")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "7", body.FileID)
	assert.Equal(t, "document", body.Kind)
	assert.Equal(t, "done", body.State)
	assert.Equal(t, 3, body.ChunksIndexed)

	require.Len(t, f.ingest.requests, 1)
	req := f.ingest.requests[0]
	assert.Equal(t, "alice", req.OwnerID)
	assert.Equal(t, "Assignment1.txt", req.Filename)
	assert.Equal(t, "text/plain", req.MIMEType)
	assert.Equal(t, "Assignment 1 submitted to Dr. X", string(req.Blob))
}

func TestUpload_FailedEnrichmentStillCreated(t *testing.T) {
	f := newAPIFixture(t)
	f.ingest.result = &domain.IngestResult{
		FileID:      "8",
		Kind:        domain.KindUnknown,
		State:       domain.StateFailed,
		FailedStage: domain.StateExtracting,
		Warnings:    []string{"no text extracted"},
	}

	rec := f.do(multipartUpload(t, "empty.txt", "text/plain", nil), "alice")

	require.Equal(t, http.StatusCreated, rec.Code)
	var body IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed", body.State)
	assert.Equal(t, "extracting", body.FailedStage)
	assert.Equal(t, []string{"no text extracted"}, body.Warnings)
}

func TestUpload_Errors(t *testing.T) {
	t.Run("missing owner", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.do(multipartUpload(t, "a.txt", "text/plain", []byte("x")), "  ")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "OWNER_REQUIRED", decodeAPIError(t, rec).Code)
		assert.Empty(t, f.ingest.requests)
	})

	t.Run("missing file field", func(t *testing.T) {
		f := newAPIFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", strings.NewReader("plain body"))
		req.Header.Set("Content-Type", "text/plain")

		rec := f.do(req, "alice")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "BAD_REQUEST", decodeAPIError(t, rec).Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newAPIFixture(t)
		f.ingest.err = errors.New("store blob: disk full")

		rec := f.do(multipartUpload(t, "a.txt", "text/plain", []byte("x")), "alice")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "INTERNAL_ERROR", decodeAPIError(t, rec).Code)
	})
}

func TestListFiles(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2"}},
		{"?category=all", []string{"1", "2"}},
		{"?category=receipts", []string{"1"}},
		{"?category=Assignments", []string{"2"}},
		{"?category=forms", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/files"+tt.query, nil), "alice")
			require.Equal(t, http.StatusOK, rec.Code)

			var body FileListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			var ids []string
			for _, file := range body.Files {
				ids = append(ids, file.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
			assert.Equal(t, len(tt.want), body.Count)
			assert.NotNil(t, body.Files)
		})
	}
}

func TestListFiles_InvalidCategory(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/files?category=spreadsheets", nil), "alice")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeAPIError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "kind", body.Field)
}

func TestCategories(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/categories", nil), "alice")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Categories []CategoryResponse `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Categories, 4)
	counts := map[string]int{}
	for _, c := range body.Categories {
		counts[c.Kind] = c.Count
		assert.NotEmpty(t, c.Description)
	}
	assert.Equal(t, map[string]int{"document": 1, "receipt": 1, "form": 0, "unknown": 0}, counts)
}

func TestGetFile(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/1", nil), "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var body FileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "receipt.pdf", body.OriginalFilename)
	assert.Equal(t, "receipt", body.Kind)
	assert.Equal(t, "done", body.Status)
	assert.Empty(t, body.FailedStage)

	// Another owner's file is indistinguishable from a missing one.
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/3", nil), "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/files/abc", nil), "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteFile(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/v1/files/2", nil), "alice")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []domain.FileID{"2"}, f.files.deleted)

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/api/v1/files/2", nil), "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReindex(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/files/0007/reindex", nil), "alice")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.FileID{"0007"}, f.ingest.reindex)

	f.ingest.err = domain.ErrNotFound
	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/v1/files/9/reindex", nil), "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestQuery(t *testing.T) {
	f := newAPIFixture(t)
	essay := record("166", "alice", "essay.txt", domain.KindDocument)
	f.query.result = &domain.QueryResult{
		IsDocumentSpecific: true,
		Answer:             "It was submitted to Dr. X.",
		AnswerContext: []domain.RetrievedChunk{{
			Chunk: domain.Chunk{ID: "166_chunk_0", FileID: "166", Kind: domain.KindDocument, Text: "Assignment 1 submitted to Dr. X"},
			File:  essay,
			Score: 0.91,
		}},
	}

	rec := f.do(postJSON("/api/v1/query", `{"query":"who is it for?","file_ids":[166," 0166 "],"generate":true,"top_k":3}`), "alice")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "It was submitted to Dr. X.", body.Answer)
	assert.True(t, body.IsDocumentSpecific)
	assert.Equal(t, "document", body.QueryType)
	assert.Equal(t, []string{"166"}, body.FiltersApplied.FileIDs)
	require.Len(t, body.Chunks, 1)
	assert.Equal(t, "essay.txt", body.Chunks[0].Filename)
	assert.Equal(t, "166_chunk_0", body.Chunks[0].ChunkID)
	assert.InDelta(t, 0.91, body.Chunks[0].Score, 1e-9)

	last := f.query.last
	assert.Equal(t, "alice", last.OwnerID)
	assert.Equal(t, "who is it for?", last.Text)
	assert.Equal(t, 3, last.TopK)
	assert.True(t, last.Generate)
	assert.Equal(t, []any{json.Number("166"), " 0166 "}, last.FileIDs)
}

func TestQuery_SingleFileIDAndKind(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(postJSON("/api/v1/query", `{"query":"total?","file_id":"12","kind":"receipts"}`), "alice")

	require.Equal(t, http.StatusOK, rec.Code)
	var body QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"12"}, body.FiltersApplied.FileIDs)
	assert.Equal(t, "receipt", body.FiltersApplied.Kind)
	assert.False(t, body.IsDocumentSpecific)
	assert.NotNil(t, body.Chunks)
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		owner  string
		err    error
		status int
		code   string
	}{
		{"malformed json", `{"query":`, "alice", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing owner", `{"query":"x"}`, "", nil, http.StatusBadRequest, "OWNER_REQUIRED"},
		{"bad file id", `{"query":"x","file_ids":["12x"]}`, "alice", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"fractional file id", `{"query":"x","file_ids":[1.5]}`, "alice", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown kind", `{"query":"x","kind":"spreadsheet"}`, "alice", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty query", `{"query":""}`, "alice", domain.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST"},
		{"embedding down", `{"query":"x"}`, "alice", domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"index failure", `{"query":"x"}`, "alice", errors.New("search: disk I/O error"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.query.err = tt.err

			rec := f.do(postJSON("/api/v1/query", tt.body), tt.owner)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeAPIError(t, rec).Code)
		})
	}
}

func TestNotFoundRoute(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil), "alice")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HTTP_ERROR", decodeAPIError(t, rec).Code)
}

func TestBodyLimit(t *testing.T) {
	f := newAPIFixture(t)
	server, err := NewServer(&Ports{Ingest: f.ingest, Query: f.query, Files: f.files}, WithBodyLimit("1K"))
	require.NoError(t, err)
	f.server = server

	rec := f.do(multipartUpload(t, "big.txt", "text/plain", bytes.Repeat([]byte("a"), 4096)), "alice")

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, f.ingest.requests)
}

func TestNewServer_RequiresPorts(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)

	_, err = NewServer(&Ports{Ingest: &mockIngest{}})
	assert.Error(t, err)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	f := newAPIFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.server.Run(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
