package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func TestEmbeddingService_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{0.5, float64(len(req.Prompt))}})
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultModel, svc.ModelName())

	vec, err := svc.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 3}, vec)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, float32(2), vecs[1][1])
}

func TestEmbeddingService_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"overloaded", http.StatusServiceUnavailable, "busy", true},
		{"rate limited", http.StatusTooManyRequests, "slow down", true},
		{"model missing", http.StatusNotFound, "model not found", false},
		{"empty vector", http.StatusOK, `{"embedding":[]}`, false},
		{"garbage", http.StatusOK, `not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := NewEmbeddingService(Config{BaseURL: server.URL})
			_, err := svc.Embed(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.transient, domain.IsTransientEmbedding(err))
			if !tt.transient {
				var perm *domain.EmbeddingPermanentError
				assert.True(t, errors.As(err, &perm))
			}
		})
	}
}

func TestEmbeddingService_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	svc := NewEmbeddingService(Config{BaseURL: url})
	_, err := svc.Embed(context.Background(), "x")
	assert.True(t, domain.IsTransientEmbedding(err))
	assert.Error(t, svc.Ping(context.Background()))
}

func TestEmbeddingService_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
