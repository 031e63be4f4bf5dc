package extractors

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// ErrNoText is the cause of an ExtractionError for blobs that hold no text.
var ErrNoText = errors.New("no text content")

// DefaultTimeout bounds a single extraction.
const DefaultTimeout = time.Duration(domain.DefaultExtractTimeout) * time.Second

const octetStream = "application/octet-stream"

// Verify interface compliance.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// extensionTypes covers extensions the platform MIME table often lacks.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".xml":      "application/xml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".htm":      "text/html",
	".html":     "text/html",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".eml":      "message/rfc822",
}

// Registry selects the highest-priority extractor for a MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.Extractor
	timeout    time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTimeout bounds each extraction. Zero disables the bound.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an extractor to the registry.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, e)
	// Stable keeps registration order among equal priorities.
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
}

// SupportedMIMETypes returns all MIME types that can be extracted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, e := range r.extractors {
		for _, m := range e.SupportedMIMETypes() {
			if !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Extract resolves the effective MIME type and runs the best extractor.
// Every failure is a *domain.ExtractionError.
func (r *Registry) Extract(ctx context.Context, blob []byte, mimeType, filename string) (string, error) {
	resolved := ResolveMIMEType(blob, mimeType, filename)

	if len(blob) == 0 {
		return "", &domain.ExtractionError{MIMEType: resolved, Err: ErrNoText}
	}

	e := r.find(resolved)
	if e == nil {
		return "", &domain.ExtractionError{MIMEType: resolved, Err: domain.ErrUnsupportedType}
	}

	logger.Debug("extract: %s (%d bytes) as %s", filename, len(blob), resolved)

	text, err := r.run(ctx, e, blob, resolved)
	if err != nil {
		var ee *domain.ExtractionError
		if errors.As(err, &ee) {
			return "", err
		}
		return "", &domain.ExtractionError{MIMEType: resolved, Err: err}
	}

	if strings.TrimSpace(text) == "" {
		return "", &domain.ExtractionError{MIMEType: resolved, Err: ErrNoText}
	}
	return text, nil
}

func (r *Registry) run(ctx context.Context, e driven.Extractor, blob []byte, mimeType string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("extractor panic: %v", p)}
			}
		}()
		text, err := e.Extract(ctx, blob, mimeType)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("extraction timed out: %w", ctx.Err())
	}
}

func (r *Registry) find(mimeType string) driven.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.extractors {
		for _, m := range e.SupportedMIMETypes() {
			if matchMIME(m, mimeType) {
				return e
			}
		}
	}
	return nil
}

func matchMIME(pattern, mimeType string) bool {
	pattern = strings.ToLower(pattern)
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(mimeType, prefix+"/")
	}
	return pattern == mimeType
}

// ResolveMIMEType strips parameters and lower-cases the declared type.
// An empty or generic declared type is replaced by the filename extension's
// type, and failing that by content sniffing.
func ResolveMIMEType(blob []byte, declared, filename string) string {
	m := normalizeMIME(declared)
	if m != "" && m != octetStream {
		return m
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := normalizeMIME(mime.TypeByExtension(ext)); t != "" {
		return t
	}

	if len(blob) > 0 {
		return normalizeMIME(mimetype.Detect(blob).String())
	}
	if m != "" {
		return m
	}
	return octetStream
}

func normalizeMIME(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(m); err == nil {
		return strings.ToLower(mt)
	}
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
