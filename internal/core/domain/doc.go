// Package domain defines the core business entities for grabdocs.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - FileRecord: An uploaded file and its enrichment state
//   - Kind: The closed set of semantic categories a file can carry
//   - Chunk: An embedded, indexed window of a file's text
//   - RetrievalFilter: The owner/file/kind predicate applied to queries
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
