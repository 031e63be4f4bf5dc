package driven

import "context"

// Extractor turns a blob of one family of MIME types into plain text.
// Extraction is pure: it reads nothing but the given blob.
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	// A trailing "/*" matches a whole top-level type.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors return 50, fallbacks 1-9.
	Priority() int

	// Extract returns the text content of blob.
	Extract(ctx context.Context, blob []byte, mimeType string) (string, error)
}

// ExtractorRegistry selects the best extractor for a blob.
type ExtractorRegistry interface {
	// Extract runs the highest-priority matching extractor.
	// Failures are returned as *domain.ExtractionError.
	Extract(ctx context.Context, blob []byte, mimeType, filename string) (string, error)

	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// SupportedMIMETypes returns all MIME types that can be extracted.
	SupportedMIMETypes() []string
}
