// Package plaintext extracts text from plain text, CSV, JSON and XML blobs.
package plaintext

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// ErrInvalidUTF8 is returned for blobs that are not UTF-8 text.
var ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/*",
		"application/json",
		"application/x-ndjson",
		"application/xml",
		"application/x-yaml",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // Fallback extractor
}

// Extract validates UTF-8 and strips a byte order mark.
// CSV rows are flattened to tab-separated lines.
func (e *Extractor) Extract(_ context.Context, blob []byte, mimeType string) (string, error) {
	if blob == nil {
		return "", domain.ErrInvalidInput
	}

	blob = bytes.TrimPrefix(blob, utf8BOM)
	if !utf8.Valid(blob) {
		return "", ErrInvalidUTF8
	}

	if mimeType == "text/csv" {
		return flattenCSV(blob), nil
	}
	return string(blob), nil
}

// flattenCSV joins each record with tabs. Malformed CSV is returned as is.
func flattenCSV(content []byte) string {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var sb strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return string(content)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(record, "\t"))
	}
	return sb.String()
}
