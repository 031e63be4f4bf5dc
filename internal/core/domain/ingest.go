package domain

// IngestRequest is an upload handed to the pipeline.
type IngestRequest struct {
	OwnerID  string
	Blob     []byte
	MIMEType string
	Filename string
}

// IngestResult reports the outcome of an upload.
// A result is returned whenever the FileRecord exists, even if enrichment failed.
type IngestResult struct {
	FileID        FileID
	Kind          Kind
	ChunksIndexed int
	ChunksSkipped int
	Partial       bool
	State         IngestState
	FailedStage   IngestState
	Warnings      []string
}

// Failed returns true if enrichment stopped before completion.
func (r *IngestResult) Failed() bool {
	return r.State == StateFailed
}

// QueryType describes the scope of a query.
type QueryType string

// Query scopes.
const (
	// QueryTypeDocument queries a caller-selected set of files.
	QueryTypeDocument QueryType = "document"

	// QueryTypeKind queries every file of one kind.
	QueryTypeKind QueryType = "kind"

	// QueryTypeCorpus queries the owner's whole corpus.
	QueryTypeCorpus QueryType = "corpus"
)

// QueryRequest is a natural-language query with optional filters.
type QueryRequest struct {
	OwnerID string
	Text    string

	// FileIDs accepts any representation ParseFileID understands.
	FileIDs []any

	// Kind is a raw kind token; empty or "all" means no restriction.
	Kind string

	TopK int

	// Generate asks the answer generator for a final answer.
	Generate bool
}

// Filter validates the request and builds its retrieval filter.
func (q QueryRequest) Filter() (RetrievalFilter, error) {
	f := RetrievalFilter{OwnerID: q.OwnerID}

	if len(q.FileIDs) > 0 {
		ids, err := ParseFileIDs(q.FileIDs)
		if err != nil {
			return RetrievalFilter{}, err
		}
		f.FileIDs = ids
	}

	kind, err := ParseKindFilter(q.Kind)
	if err != nil {
		return RetrievalFilter{}, err
	}
	f.Kind = kind

	if err := f.Validate(); err != nil {
		return RetrievalFilter{}, err
	}
	return f, nil
}

// FiltersApplied describes the filter a query actually ran with.
type FiltersApplied struct {
	FileIDs []FileID
	Kind    *Kind
}

// QueryResult is the response to a query.
type QueryResult struct {
	// AnswerContext holds retrieved chunks in rank order.
	AnswerContext []RetrievedChunk

	// IsDocumentSpecific is false when nothing was retrieved and the answer
	// comes from general knowledge.
	IsDocumentSpecific bool

	// Answer is set when generation was requested and available.
	Answer string

	FiltersApplied FiltersApplied
	QueryType      QueryType
}

// QueryTypeFor classifies the scope of a validated filter.
func QueryTypeFor(f RetrievalFilter) QueryType {
	switch {
	case len(f.FileIDs) > 0:
		return QueryTypeDocument
	case f.Kind != nil:
		return QueryTypeKind
	default:
		return QueryTypeCorpus
	}
}
