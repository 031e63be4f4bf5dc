package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func TestExtract(t *testing.T) {
	e := New()
	ctx := context.Background()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "paragraphs become lines",
			input:    "<html><body><p>Hello</p><p>World</p></body></html>",
			expected: "Hello\nWorld",
		},
		{
			name:     "script and style skipped",
			input:    "<html><head><title>T</title><style>body{}</style></head><body><script>var x=1;</script><div>visible</div></body></html>",
			expected: "visible",
		},
		{
			name:     "entities decoded",
			input:    "<p>Fish &amp; Chips &lt;3</p>",
			expected: "Fish & Chips <3",
		},
		{
			name:     "inline elements keep words together",
			input:    "<p>Total: <b>$10.80</b> paid</p>",
			expected: "Total: $10.80 paid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(ctx, []byte(tt.input), "text/html")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtract_NilBlob(t *testing.T) {
	_, err := New().Extract(context.Background(), nil, "text/html")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 50, New().Priority())
}
