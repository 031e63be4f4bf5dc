package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func embeddingsHandler(t *testing.T, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
			return
		}

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var inputs []any
		switch v := req["input"].(type) {
		case string:
			inputs = []any{v}
		case []any:
			inputs = v
		}

		data := make([]map[string]any, len(inputs))
		// Reverse order to check results are placed by index.
		for i := range inputs {
			idx := len(inputs) - 1 - i
			data[i] = map[string]any{"object": "embedding", "index": idx, "embedding": []float64{float64(idx), 1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req["model"],
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}
}

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)

	svc, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, svc.Dimensions())
	assert.Equal(t, "text-embedding-3-large", svc.ModelName())

	svc, err = NewEmbeddingService(Config{APIKey: "k", Model: "custom", Dimensions: 8})
	require.NoError(t, err)
	assert.Equal(t, 8, svc.Dimensions())
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(embeddingsHandler(t, http.StatusOK))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, []float32{float32(i), 1}, v)
	}

	vec, err := svc.Embed(context.Background(), "single")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)

	vecs, err = svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbeddingService_ErrorClassification(t *testing.T) {
	for status, transient := range map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadRequest:          false,
		http.StatusUnauthorized:        false,
	} {
		server := httptest.NewServer(embeddingsHandler(t, status))
		svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = svc.Embed(context.Background(), "x")
		require.Error(t, err)
		assert.Equal(t, transient, domain.IsTransientEmbedding(err), "status %d", status)
		server.Close()
	}
}
