package domain

import (
	"slices"
	"strings"
)

// Retrieval limits.
const (
	DefaultTopK = 5
	MaxTopK     = 50
)

// RetrievalFilter restricts retrieval to one owner and optionally to a set
// of files and a kind.
type RetrievalFilter struct {
	// OwnerID is required. Retrieval never crosses owners.
	OwnerID string

	// FileIDs restricts results to these files when non-empty.
	FileIDs []FileID

	// Kind restricts results to one kind when non-nil.
	Kind *Kind
}

// Validate normalizes the filter in place and reports malformed values.
func (f *RetrievalFilter) Validate() error {
	f.OwnerID = strings.TrimSpace(f.OwnerID)
	if f.OwnerID == "" {
		return &FilterValidationError{Field: "owner_id", Value: "", Reason: "required"}
	}

	if len(f.FileIDs) > 0 {
		raw := make([]any, len(f.FileIDs))
		for i, id := range f.FileIDs {
			raw[i] = string(id)
		}
		ids, err := ParseFileIDs(raw)
		if err != nil {
			return err
		}
		f.FileIDs = ids
	}

	if f.Kind != nil && !f.Kind.IsValid() {
		k, ok := ParseKind(string(*f.Kind))
		if !ok {
			return &FilterValidationError{Field: "kind", Value: string(*f.Kind), Reason: "unknown kind"}
		}
		f.Kind = &k
	}
	return nil
}

// VectorFilter returns the exact-match predicate handed to the vector index.
func (f RetrievalFilter) VectorFilter() VectorFilter {
	return VectorFilter{OwnerID: f.OwnerID, FileIDs: f.FileIDs, Kind: f.Kind}
}

// VectorFilter is an exact-match predicate over chunk metadata.
type VectorFilter struct {
	OwnerID string
	FileIDs []FileID
	Kind    *Kind
}

// Matches reports whether a chunk satisfies the predicate.
func (f VectorFilter) Matches(c Chunk) bool {
	if c.OwnerID != f.OwnerID {
		return false
	}
	if len(f.FileIDs) > 0 && !slices.Contains(f.FileIDs, c.FileID) {
		return false
	}
	if f.Kind != nil && c.Kind != *f.Kind {
		return false
	}
	return true
}

// ClampTopK applies the default and maximum result counts.
func ClampTopK(k int) int {
	switch {
	case k <= 0:
		return DefaultTopK
	case k > MaxTopK:
		return MaxTopK
	default:
		return k
	}
}
