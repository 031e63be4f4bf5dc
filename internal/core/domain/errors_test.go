package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrModelMismatch", ErrModelMismatch},
		{"ErrOwnerRequired", ErrOwnerRequired},
		{"ErrLinkNotFound", ErrLinkNotFound},
		{"ErrLinkInactive", ErrLinkInactive},
		{"ErrLinkExpired", ErrLinkExpired},
		{"ErrLinkExhausted", ErrLinkExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestExtractionError(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := fmt.Errorf("extract: %w", &ExtractionError{MIMEType: "application/pdf", Err: cause})

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "application/pdf", ee.MIMEType)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "application/pdf")

	bare := &ExtractionError{Err: ErrUnsupportedType}
	assert.Equal(t, "extraction failed: unsupported type", bare.Error())
}

func TestEmbeddingErrors(t *testing.T) {
	transient := fmt.Errorf("embed: %w", &EmbeddingTransientError{Err: errors.New("429")})
	permanent := fmt.Errorf("embed: %w", &EmbeddingPermanentError{Err: errors.New("400")})

	assert.True(t, IsTransientEmbedding(transient))
	assert.False(t, IsTransientEmbedding(permanent))
	assert.False(t, IsTransientEmbedding(errors.New("plain")))

	var pe *EmbeddingPermanentError
	assert.True(t, errors.As(permanent, &pe))
}

func TestIndexWriteError(t *testing.T) {
	err := &IndexWriteError{FileID: "166", Op: "replace", Err: ErrVectorIndexUnavailable}

	assert.Equal(t, "index replace for file 166: vector index unavailable", err.Error())
	assert.ErrorIs(t, err, ErrVectorIndexUnavailable)
}

func TestFilterValidationError(t *testing.T) {
	err := &FilterValidationError{Field: "kind", Value: "recipes", Reason: "unknown kind"}

	assert.Equal(t, "invalid filter kind=recipes: unknown kind", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrNotFound)
}
