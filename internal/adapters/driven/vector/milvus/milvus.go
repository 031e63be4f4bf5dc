// Package milvus implements driven.VectorIndex on a Milvus collection.
//
// Milvus has no multi-statement transactions, so ReplaceFile deletes the
// file's entities and then inserts the new set. During that window a search
// may return no chunks for the file, never a mix of old and new ones.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/vector"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

const (
	fieldChunkID   = "chunk_id"
	fieldFileID    = "file_id"
	fieldOwnerID   = "owner_id"
	fieldKind      = "kind"
	fieldOrdinal   = "ordinal"
	fieldFilename  = "filename"
	fieldContent   = "content"
	fieldEmbedding = "embedding"

	maxContentLength = 65535
	maxIDLength      = 256
	maxNameLength    = 1024

	modelPrefix = "grabdocs chunks; model="
)

var outputFields = []string{fieldChunkID, fieldFileID, fieldOwnerID, fieldKind, fieldOrdinal, fieldFilename, fieldContent}

var _ driven.VectorIndex = (*Index)(nil)

// Index is one Milvus collection shared by all owners.
type Index struct {
	client     milvusclient.Client
	collection string

	mu    sync.Mutex
	dims  int
	model string
}

// New connects to Milvus and opens collection. The collection is created
// on the first write, when the embedding size is known.
func New(ctx context.Context, address, collection string) (*Index, error) {
	if collection == "" {
		collection = domain.DefaultCollection
	}
	c, err := milvusclient.NewClient(ctx, milvusclient.Config{
		Address: address,
	})
	if err != nil {
		return nil, fmt.Errorf("milvus connect %s: %w: %w", address, domain.ErrVectorIndexUnavailable, err)
	}

	idx := &Index{client: c, collection: collection}
	if err := idx.open(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return idx, nil
}

// open reads the size and model of an existing collection and loads it
// into memory, since a restarted server keeps collections released.
func (x *Index) open(ctx context.Context) error {
	exists, err := x.client.HasCollection(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", x.collection, err)
	}
	if !exists {
		return nil
	}
	coll, err := x.client.DescribeCollection(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("describe collection %s: %w", x.collection, err)
	}
	dims, err := schemaDims(coll.Schema)
	if err != nil {
		return fmt.Errorf("collection %s: %w", x.collection, err)
	}
	if err := x.client.LoadCollection(ctx, x.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", x.collection, err)
	}
	x.dims = dims
	x.model = modelFromDescription(coll.Schema.Description)
	return nil
}

func schemaDims(schema *entity.Schema) (int, error) {
	if schema == nil {
		return 0, fmt.Errorf("no schema")
	}
	for _, f := range schema.Fields {
		if f.Name == fieldEmbedding {
			dims, err := strconv.Atoi(f.TypeParams[entity.TypeParamDim])
			if err != nil {
				return 0, fmt.Errorf("bad dim %q", f.TypeParams[entity.TypeParamDim])
			}
			return dims, nil
		}
	}
	return 0, fmt.Errorf("no %s field", fieldEmbedding)
}

// modelFromDescription parses the model recorded at creation, or "".
func modelFromDescription(desc string) string {
	model, ok := strings.CutPrefix(desc, modelPrefix)
	if !ok {
		return ""
	}
	return model
}

// ensureCollection creates the collection, an HNSW index and loads it.
// Callers hold x.mu.
func (x *Index) ensureCollection(ctx context.Context, dims int) error {
	if x.dims != 0 {
		return nil
	}

	schema := entity.NewSchema().
		WithName(x.collection).
		WithDescription(modelPrefix + x.model).
		WithField(entity.NewField().
			WithName(fieldChunkID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxIDLength).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(fieldFileID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxIDLength)).
		WithField(entity.NewField().WithName(fieldOwnerID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxIDLength)).
		WithField(entity.NewField().WithName(fieldKind).WithDataType(entity.FieldTypeVarChar).WithMaxLength(32)).
		WithField(entity.NewField().WithName(fieldOrdinal).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(fieldFilename).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxNameLength)).
		WithField(entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxContentLength)).
		WithField(entity.NewField().
			WithName(fieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dims)))

	if err := x.client.CreateCollection(ctx, schema, 1); err != nil {
		return fmt.Errorf("create collection %s: %w", x.collection, err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
	if err != nil {
		return fmt.Errorf("create HNSW index params: %w", err)
	}
	if err := x.client.CreateIndex(ctx, x.collection, fieldEmbedding, idx, false); err != nil {
		return fmt.Errorf("create index on %s: %w", x.collection, err)
	}
	if err := x.client.LoadCollection(ctx, x.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", x.collection, err)
	}

	x.dims = dims
	return nil
}

// ReplaceFile deletes the file's entities, then inserts chunks.
func (x *Index) ReplaceFile(ctx context.Context, fileID domain.FileID, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if c.FileID != fileID {
			return fmt.Errorf("%w: chunk %s belongs to file %s", domain.ErrInvalidInput, c.ID, c.FileID)
		}
	}

	if err := checkContent(chunks); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	dims, err := vector.CheckDimensions(x.dims, chunks)
	if err != nil {
		return fmt.Errorf("collection %s has %d dimensions: %w", x.collection, x.dims, err)
	}
	if len(chunks) > 0 {
		if err := x.ensureCollection(ctx, dims); err != nil {
			return err
		}
	}
	if x.dims == 0 {
		return nil
	}

	if err := x.client.Delete(ctx, x.collection, "", fileExpr(fileID)); err != nil {
		return fmt.Errorf("delete file %s from %s: %w", fileID, x.collection, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	cols, err := columns(chunks, x.dims)
	if err != nil {
		return err
	}
	if _, err := x.client.Insert(ctx, x.collection, "", cols...); err != nil {
		return fmt.Errorf("insert into %s: %w", x.collection, err)
	}
	if err := x.client.Flush(ctx, x.collection, false); err != nil {
		return fmt.Errorf("flush %s: %w", x.collection, err)
	}
	return nil
}

// DeleteFile removes every entity of the file.
func (x *Index) DeleteFile(ctx context.Context, fileID domain.FileID) error {
	if x.Dimensions() == 0 {
		return nil
	}
	if err := x.client.Delete(ctx, x.collection, "", fileExpr(fileID)); err != nil {
		return fmt.Errorf("delete file %s from %s: %w", fileID, x.collection, err)
	}
	return nil
}

// Search runs an HNSW search restricted by the metadata expression and
// re-ranks the page with the shared tie-break.
func (x *Index) Search(ctx context.Context, query []float32, filter domain.VectorFilter, k int) ([]domain.ScoredChunk, error) {
	dims := x.Dimensions()
	if k <= 0 || dims == 0 {
		return nil, nil
	}
	if len(query) != dims {
		return nil, fmt.Errorf("query has %d dimensions, collection %d: %w", len(query), dims, domain.ErrDimensionMismatch)
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("create search params: %w", err)
	}

	results, err := x.client.Search(
		ctx,
		x.collection,
		nil,
		filterExpr(filter),
		outputFields,
		[]entity.Vector{entity.FloatVector(query)},
		fieldEmbedding,
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", x.collection, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	sr := results[0]
	if sr.Err != nil {
		return nil, fmt.Errorf("search result error: %w", sr.Err)
	}

	hits := make([]domain.ScoredChunk, 0, sr.ResultCount)
	for i := 0; i < sr.ResultCount; i++ {
		c := chunkAt(sr.Fields, i)
		hits = append(hits, domain.ScoredChunk{Chunk: c, Score: float64(sr.Scores[i])})
	}
	return vector.TopK(hits, k), nil
}

// CountFile counts the file's entities with a count(*) query.
func (x *Index) CountFile(ctx context.Context, fileID domain.FileID) (int, error) {
	if x.Dimensions() == 0 {
		return 0, nil
	}
	rs, err := x.client.Query(ctx, x.collection, nil, fileExpr(fileID), []string{"count(*)"})
	if err != nil {
		return 0, fmt.Errorf("count file %s in %s: %w", fileID, x.collection, err)
	}
	col := rs.GetColumn("count(*)")
	if col == nil || col.Len() == 0 {
		return 0, nil
	}
	n, err := col.GetAsInt64(0)
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	return int(n), nil
}

// Dimensions returns the collection's vector size, or 0 before the first write.
func (x *Index) Dimensions() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.dims
}

// Model returns the embedding model recorded for the collection.
func (x *Index) Model() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.model
}

// BindModel fixes the model. A collection created before models were
// recorded keeps the binding for this process only, as Milvus cannot
// rewrite a collection description.
func (x *Index) BindModel(_ context.Context, model string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	switch {
	case model == "" || x.model == model:
		return nil
	case x.model != "":
		return fmt.Errorf("collection %s was built with %s, not %s: %w", x.collection, x.model, model, domain.ErrModelMismatch)
	}
	x.model = model
	return nil
}

// Close releases the Milvus client connection.
func (x *Index) Close() error {
	return x.client.Close()
}

// checkContent rejects chunk text longer than the content field holds.
func checkContent(chunks []domain.Chunk) error {
	for _, c := range chunks {
		if len(c.Text) > maxContentLength {
			return fmt.Errorf("%w: chunk %d of file %s is %d bytes, milvus holds %d",
				domain.ErrInvalidInput, c.Ordinal, c.FileID, len(c.Text), maxContentLength)
		}
	}
	return nil
}

// columns converts chunks into insert columns.
func columns(chunks []domain.Chunk, dims int) ([]entity.Column, error) {
	if err := checkContent(chunks); err != nil {
		return nil, err
	}

	ids := make([]string, len(chunks))
	fileIDs := make([]string, len(chunks))
	owners := make([]string, len(chunks))
	kinds := make([]string, len(chunks))
	ordinals := make([]int64, len(chunks))
	names := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))

	for i, c := range chunks {
		ids[i] = c.ID
		if ids[i] == "" {
			ids[i] = domain.ChunkID(c.FileID, c.Ordinal)
		}
		fileIDs[i] = string(c.FileID)
		owners[i] = c.OwnerID
		kinds[i] = string(c.Kind)
		ordinals[i] = int64(c.Ordinal)
		names[i] = truncate(c.Filename, maxNameLength)
		contents[i] = c.Text
		vectors[i] = c.Embedding
	}

	return []entity.Column{
		entity.NewColumnVarChar(fieldChunkID, ids),
		entity.NewColumnVarChar(fieldFileID, fileIDs),
		entity.NewColumnVarChar(fieldOwnerID, owners),
		entity.NewColumnVarChar(fieldKind, kinds),
		entity.NewColumnInt64(fieldOrdinal, ordinals),
		entity.NewColumnVarChar(fieldFilename, names),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnFloatVector(fieldEmbedding, dims, vectors),
	}, nil
}

// chunkAt reads row i of a search result page.
func chunkAt(fields milvusclient.ResultSet, i int) domain.Chunk {
	str := func(name string) string {
		col := fields.GetColumn(name)
		if col == nil {
			return ""
		}
		s, _ := col.GetAsString(i)
		return s
	}
	var ordinal int64
	if col := fields.GetColumn(fieldOrdinal); col != nil {
		ordinal, _ = col.GetAsInt64(i)
	}
	return domain.Chunk{
		ID:       str(fieldChunkID),
		FileID:   domain.FileID(str(fieldFileID)),
		OwnerID:  str(fieldOwnerID),
		Kind:     domain.Kind(str(fieldKind)),
		Ordinal:  int(ordinal),
		Filename: str(fieldFilename),
		Text:     str(fieldContent),
	}
}

// fileExpr selects one file's entities.
func fileExpr(fileID domain.FileID) string {
	return fmt.Sprintf(`%s == "%s"`, fieldFileID, escapeExpr(string(fileID)))
}

// filterExpr renders a VectorFilter as a Milvus boolean expression.
func filterExpr(f domain.VectorFilter) string {
	parts := []string{fmt.Sprintf(`%s == "%s"`, fieldOwnerID, escapeExpr(f.OwnerID))}
	if len(f.FileIDs) > 0 {
		quoted := make([]string, len(f.FileIDs))
		for i, id := range f.FileIDs {
			quoted[i] = `"` + escapeExpr(string(id)) + `"`
		}
		parts = append(parts, fmt.Sprintf(`%s in [%s]`, fieldFileID, strings.Join(quoted, ", ")))
	}
	if f.Kind != nil {
		parts = append(parts, fmt.Sprintf(`%s == "%s"`, fieldKind, escapeExpr(string(*f.Kind))))
	}
	return strings.Join(parts, " && ")
}

// escapeExpr escapes backslashes and double quotes for Milvus filter expressions.
func escapeExpr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
