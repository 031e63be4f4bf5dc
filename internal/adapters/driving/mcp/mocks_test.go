package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// mockIngestService records ingest requests.
type mockIngestService struct {
	requests []domain.IngestRequest
	result   *domain.IngestResult
	err      error
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngestService) Reindex(context.Context, string, domain.FileID) (*domain.IngestResult, error) {
	return m.result, m.err
}

// mockQueryService records the last query.
type mockQueryService struct {
	last   domain.QueryRequest
	result *domain.QueryResult
	err    error
}

func (m *mockQueryService) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockQueryService) Retrieve(context.Context, string, domain.RetrievalFilter, int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

// mockFileService serves a fixed set of records for one owner.
type mockFileService struct {
	records  []domain.FileRecord
	lastKind string
	err      error
}

func (m *mockFileService) List(_ context.Context, owner, kindToken string) ([]domain.FileRecord, error) {
	m.lastKind = kindToken
	if m.err != nil {
		return nil, m.err
	}
	kind, err := domain.ParseKindFilter(kindToken)
	if err != nil {
		return nil, err
	}
	var out []domain.FileRecord
	for _, r := range m.records {
		if r.OwnerID == owner && (kind == nil || r.Kind == *kind) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockFileService) Get(_ context.Context, owner string, id domain.FileID) (*domain.FileRecord, error) {
	canonical, err := domain.ParseFileID(id)
	if err != nil {
		return nil, err
	}
	for _, r := range m.records {
		if r.ID == canonical && r.OwnerID == owner {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockFileService) Delete(context.Context, string, domain.FileID) error { return m.err }

func (m *mockFileService) Categories(_ context.Context, owner string) (map[domain.Kind]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	counts := make(map[domain.Kind]int)
	for _, k := range domain.AllKinds() {
		counts[k] = 0
	}
	for _, r := range m.records {
		if r.OwnerID == owner {
			counts[r.Kind]++
		}
	}
	return counts, nil
}

func testPorts() (*Ports, *mockIngestService, *mockQueryService, *mockFileService) {
	ts := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	ingest := &mockIngestService{result: &domain.IngestResult{
		FileID:        "5",
		Kind:          domain.KindReceipt,
		State:         domain.StateDone,
		ChunksIndexed: 1,
	}}
	query := &mockQueryService{result: &domain.QueryResult{QueryType: domain.QueryTypeCorpus}}
	files := &mockFileService{records: []domain.FileRecord{
		{ID: "1", OwnerID: "local", OriginalFilename: "receipt.pdf", Kind: domain.KindReceipt, Status: domain.StateDone, ChunkCount: 1, CreatedAt: ts},
		{ID: "2", OwnerID: "local", OriginalFilename: "essay.txt", Kind: domain.KindDocument, Status: domain.StateDone, ChunkCount: 4, CreatedAt: ts},
		{ID: "3", OwnerID: "someone-else", OriginalFilename: "form.txt", Kind: domain.KindForm, Status: domain.StateDone, CreatedAt: ts},
	}}
	return &Ports{Ingest: ingest, Query: query, Files: files}, ingest, query, files
}
