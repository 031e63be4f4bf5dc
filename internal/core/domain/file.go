package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// FileID identifies a FileRecord. The canonical form is the decimal string
// of a positive integer ("166"), used at every store and index boundary.
type FileID string

// String returns the string representation.
func (id FileID) String() string {
	return string(id)
}

// Int64 returns the numeric value of a canonical id, or 0 if malformed.
func (id FileID) Int64() int64 {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// CompareFileIDs orders canonical ids numerically.
func CompareFileIDs(a, b FileID) int {
	x, y := a.Int64(), b.Int64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return strings.Compare(string(a), string(b))
	}
}

// FileIDFromInt64 returns the canonical id for a store-allocated integer.
func FileIDFromInt64(n int64) FileID {
	return FileID(strconv.FormatInt(n, 10))
}

// ParseFileID normalizes any caller representation of a file id.
// Integers, integral floats (JSON numbers) and numeric strings are accepted,
// so 166, 166.0 and " 0166 " all map to "166".
func ParseFileID(v any) (FileID, error) {
	invalid := func(reason string) (FileID, error) {
		return "", &FilterValidationError{Field: "file_id", Value: v, Reason: reason}
	}

	var n int64
	switch x := v.(type) {
	case FileID:
		return ParseFileID(string(x))
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		if uint64(x) > math.MaxInt64 {
			return invalid("out of range")
		}
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return invalid("out of range")
		}
		n = int64(x)
	case float32:
		return ParseFileID(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return invalid("not an integer")
		}
		if x > math.MaxInt64 || x < math.MinInt64 {
			return invalid("out of range")
		}
		n = int64(x)
	case json.Number:
		return ParseFileID(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return invalid("empty")
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return invalid("not a decimal integer")
		}
		n = parsed
	case nil:
		return invalid("missing")
	default:
		return invalid("unsupported type")
	}

	if n <= 0 {
		return invalid("must be positive")
	}
	return FileIDFromInt64(n), nil
}

// ParseFileIDs normalizes a set of ids, dropping duplicates while keeping order.
func ParseFileIDs(values []any) ([]FileID, error) {
	ids := make([]FileID, 0, len(values))
	seen := make(map[FileID]struct{}, len(values))
	for _, v := range values {
		id, err := ParseFileID(v)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// IngestState is the pipeline state of a file's enrichment run.
type IngestState string

// Pipeline states, in order.
const (
	StateReceived    IngestState = "received"
	StateExtracting  IngestState = "extracting"
	StateClassifying IngestState = "classifying"
	StateChunking    IngestState = "chunking"
	StateIndexing    IngestState = "indexing"
	StateDone        IngestState = "done"
	StateFailed      IngestState = "failed"
)

// IsTerminal returns true for done and failed.
func (s IngestState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// String returns the string representation.
func (s IngestState) String() string {
	return string(s)
}

// FileRecord is an uploaded file as held by the file store.
type FileRecord struct {
	// ID is assigned by the store at creation and never changes.
	ID FileID

	// OwnerID is the already-authenticated caller identity.
	OwnerID string

	// OriginalFilename is the name the file was uploaded with.
	OriginalFilename string

	// StoredFilename is the blob key the content is stored under.
	StoredFilename string

	// MIMEType is the declared content type.
	MIMEType string

	// SizeBytes is the blob length.
	SizeBytes int64

	// Kind defaults to KindUnknown until classification succeeds.
	Kind Kind

	// ChunkCount is the number of chunks indexed by the last successful run.
	ChunkCount int

	// Status is the state reached by the last pipeline run.
	Status IngestState

	// FailedStage names the stage that failed when Status is StateFailed.
	FailedStage IngestState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFileRecord holds the fields needed to create a FileRecord.
type NewFileRecord struct {
	OwnerID          string
	OriginalFilename string
	StoredFilename   string
	MIMEType         string
	SizeBytes        int64
}

// Validate checks the fields a store requires.
func (n NewFileRecord) Validate() error {
	if strings.TrimSpace(n.OwnerID) == "" {
		return ErrOwnerRequired
	}
	if n.SizeBytes < 0 {
		return ErrInvalidInput
	}
	return nil
}

// Record builds the initial FileRecord for id with explicit defaults applied.
func (n NewFileRecord) Record(id FileID, now time.Time) FileRecord {
	return FileRecord{
		ID:               id,
		OwnerID:          n.OwnerID,
		OriginalFilename: n.OriginalFilename,
		StoredFilename:   n.StoredFilename,
		MIMEType:         n.MIMEType,
		SizeBytes:        n.SizeBytes,
		Kind:             KindUnknown,
		ChunkCount:       0,
		Status:           StateReceived,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
