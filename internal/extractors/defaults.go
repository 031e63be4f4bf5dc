package extractors

import (
	"github.com/custodia-labs/grabdocs/internal/extractors/docx"
	"github.com/custodia-labs/grabdocs/internal/extractors/eml"
	"github.com/custodia-labs/grabdocs/internal/extractors/html"
	"github.com/custodia-labs/grabdocs/internal/extractors/markdown"
	"github.com/custodia-labs/grabdocs/internal/extractors/pdf"
	"github.com/custodia-labs/grabdocs/internal/extractors/plaintext"
)

// RegisterDefaults registers all built-in extractors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(eml.New())
}

// NewDefaultRegistry returns a registry holding every built-in extractor.
func NewDefaultRegistry(opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)
	RegisterDefaults(r)
	return r
}
