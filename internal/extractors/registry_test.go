package extractors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

type stubExtractor struct {
	mimeTypes []string
	priority  int
	text      string
	err       error
	delay     time.Duration
	panics    bool
}

func (s *stubExtractor) SupportedMIMETypes() []string { return s.mimeTypes }
func (s *stubExtractor) Priority() int                { return s.priority }

func (s *stubExtractor) Extract(ctx context.Context, _ []byte, _ string) (string, error) {
	if s.panics {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func TestResolveMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		blob     []byte
		declared string
		filename string
		want     string
	}{
		{"parameters stripped", []byte("x"), "Text/Plain; charset=UTF-8", "a.bin", "text/plain"},
		{"declared wins over extension", []byte("x"), "application/pdf", "a.txt", "application/pdf"},
		{"octet stream uses extension", []byte("x"), "application/octet-stream", "notes.md", "text/markdown"},
		{"empty uses extension", []byte("x"), "", "paper.DOCX", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"sniffed when nothing else", []byte("%PDF-1.7\n..."), "", "upload", "application/pdf"},
		{"sniffed text", []byte("just words"), "", "", "text/plain"},
		{"empty blob", nil, "", "", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveMIMEType(tt.blob, tt.declared, tt.filename))
		})
	}
}

func TestRegistry_PrioritySelection(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{mimeTypes: []string{"text/*"}, priority: 5, text: "fallback"})
	r.Register(&stubExtractor{mimeTypes: []string{"text/html"}, priority: 50, text: "html"})

	text, err := r.Extract(context.Background(), []byte("<p>x</p>"), "text/html", "")
	require.NoError(t, err)
	assert.Equal(t, "html", text)

	text, err = r.Extract(context.Background(), []byte("x"), "text/csv", "")
	require.NoError(t, err)
	assert.Equal(t, "fallback", text)

	assert.Equal(t, []string{"text/*", "text/html"}, r.SupportedMIMETypes())
}

func TestRegistry_Failures(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("corrupt")

	r := NewRegistry(WithTimeout(50 * time.Millisecond))
	r.Register(&stubExtractor{mimeTypes: []string{"application/pdf"}, priority: 50, err: cause})
	r.Register(&stubExtractor{mimeTypes: []string{"text/plain"}, priority: 50, text: "  \n "})
	r.Register(&stubExtractor{mimeTypes: []string{"text/slow"}, priority: 50, delay: time.Second})
	r.Register(&stubExtractor{mimeTypes: []string{"text/bad"}, priority: 50, panics: true})

	tests := []struct {
		name     string
		blob     []byte
		mimeType string
		cause    error
	}{
		{"unsupported", []byte("x"), "image/png", domain.ErrUnsupportedType},
		{"empty blob", []byte{}, "text/plain", ErrNoText},
		{"whitespace only", []byte("x"), "text/plain", ErrNoText},
		{"extractor error", []byte("x"), "application/pdf", cause},
		{"timeout", []byte("x"), "text/slow", context.DeadlineExceeded},
		{"panic", []byte("x"), "text/bad", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Extract(ctx, tt.blob, tt.mimeType, "")

			var ee *domain.ExtractionError
			require.True(t, errors.As(err, &ee), "got %v", err)
			assert.Equal(t, tt.mimeType, ee.MIMEType)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	ctx := context.Background()

	text, err := r.Extract(ctx, []byte("Assignment 1 submitted to Dr. X"), "", "assignment.txt")
	require.NoError(t, err)
	assert.Equal(t, "Assignment 1 submitted to Dr. X", text)

	text, err = r.Extract(ctx, []byte("<p>Hi <b>there</b></p>"), "text/html; charset=utf-8", "")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)

	text, err = r.Extract(ctx, []byte("# Title\n\n- item"), "", "readme.md")
	require.NoError(t, err)
	assert.Equal(t, "Title\n\nitem", text)

	_, err = r.Extract(ctx, []byte("not a pdf"), "application/pdf", "x.pdf")
	var ee *domain.ExtractionError
	assert.True(t, errors.As(err, &ee))

	text, err = r.Extract(ctx, []byte("Subject: Receipt\n\nTotal $5"), "", "receipt.eml")
	require.NoError(t, err)
	assert.Equal(t, "Subject: Receipt\n\nTotal $5", text)

	assert.Contains(t, r.SupportedMIMETypes(), "application/pdf")
	assert.Contains(t, r.SupportedMIMETypes(), "message/rfc822")
}
