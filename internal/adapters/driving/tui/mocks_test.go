package tui

import (
	"context"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

type mockQueryService struct {
	requests []domain.QueryRequest
	result   *domain.QueryResult
	err      error
}

func (m *mockQueryService) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.QueryResult{}, nil
	}
	return m.result, nil
}

func (m *mockQueryService) Retrieve(context.Context, string, domain.RetrievalFilter, int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

type mockFileService struct {
	files []domain.FileRecord
	err   error
}

func (m *mockFileService) List(context.Context, string, string) ([]domain.FileRecord, error) {
	return m.files, m.err
}

func (m *mockFileService) Get(context.Context, string, domain.FileID) (*domain.FileRecord, error) {
	return nil, domain.ErrNotFound
}

func (m *mockFileService) Delete(context.Context, string, domain.FileID) error { return m.err }

func (m *mockFileService) Categories(context.Context, string) (map[domain.Kind]int, error) {
	return nil, m.err
}

func testPorts() (*Ports, *mockQueryService, *mockFileService) {
	q := &mockQueryService{}
	f := &mockFileService{files: []domain.FileRecord{
		{ID: "1", OriginalFilename: "essay.txt", Kind: domain.KindDocument, Status: domain.StateDone},
	}}
	return &Ports{Query: q, Files: f, Owner: "alice"}, q, f
}
