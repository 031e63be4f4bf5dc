package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// mockIngest records requests and returns canned results.
type mockIngest struct {
	mu       sync.Mutex
	requests []domain.IngestRequest
	reindex  []domain.FileID
	result   *domain.IngestResult
	err      error
}

func (m *mockIngest) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngest) Reindex(_ context.Context, _ string, id domain.FileID) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reindex = append(m.reindex, id)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockQuery validates filters with the real domain rules.
type mockQuery struct {
	last   domain.QueryRequest
	result *domain.QueryResult
	err    error
}

func (m *mockQuery) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	f, err := req.Filter()
	if err != nil {
		return nil, err
	}
	res := *m.result
	res.FiltersApplied = domain.FiltersApplied{FileIDs: f.FileIDs, Kind: f.Kind}
	res.QueryType = domain.QueryTypeFor(f)
	return &res, nil
}

func (m *mockQuery) Retrieve(context.Context, string, domain.RetrievalFilter, int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

// mockFiles keeps records in a map and enforces ownership.
type mockFiles struct {
	records map[domain.FileID]domain.FileRecord
	deleted []domain.FileID
	listErr error
}

func newMockFiles(recs ...domain.FileRecord) *mockFiles {
	m := &mockFiles{records: make(map[domain.FileID]domain.FileRecord)}
	for _, r := range recs {
		m.records[r.ID] = r
	}
	return m
}

func (m *mockFiles) List(_ context.Context, owner, kindToken string) ([]domain.FileRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	kind, err := domain.ParseKindFilter(kindToken)
	if err != nil {
		return nil, err
	}
	out := []domain.FileRecord{}
	for _, r := range m.records {
		if r.OwnerID == owner && (kind == nil || r.Kind == *kind) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockFiles) Get(_ context.Context, owner string, id domain.FileID) (*domain.FileRecord, error) {
	canonical, err := domain.ParseFileID(id)
	if err != nil {
		return nil, err
	}
	r, ok := m.records[canonical]
	if !ok || r.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *mockFiles) Delete(ctx context.Context, owner string, id domain.FileID) error {
	r, err := m.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	delete(m.records, r.ID)
	m.deleted = append(m.deleted, r.ID)
	return nil
}

func (m *mockFiles) Categories(_ context.Context, owner string) (map[domain.Kind]int, error) {
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

func record(id domain.FileID, owner, name string, kind domain.Kind) domain.FileRecord {
	ts := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	return domain.FileRecord{
		ID:               id,
		OwnerID:          owner,
		OriginalFilename: name,
		StoredFilename:   owner + "/" + string(id) + ".txt",
		MIMEType:         "text/plain",
		SizeBytes:        42,
		Kind:             kind,
		ChunkCount:       2,
		Status:           domain.StateDone,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
}
