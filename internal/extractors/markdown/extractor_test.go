package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"heading", "# Assignment 1\nbody", "Assignment 1\nbody"},
		{"emphasis", "this is **bold** and *italic*", "this is bold and italic"},
		{"link keeps text", "see [the report](https://x.test/r.pdf)", "see the report"},
		{"image keeps alt", "![receipt scan](r.png)", "receipt scan"},
		{"list markers", "- one\n* two\n1. three", "one\ntwo\nthree"},
		{"blockquote", "> quoted", "quoted"},
		{"code fence keeps body", "```go\nfmt.Println()\n```", "fmt.Println()"},
		{"inline code", "run `make test`", "run make test"},
		{"rule removed", "a\n\n---\n\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripMarkdown(tt.input))
		})
	}
}

func TestExtract(t *testing.T) {
	e := New()
	assert.Equal(t, 50, e.Priority())

	text, err := e.Extract(context.Background(), []byte("## Notes\n\nSubmitted to **Dr. X**"), "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "Notes\n\nSubmitted to Dr. X", text)

	_, err = e.Extract(context.Background(), nil, "text/markdown")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
