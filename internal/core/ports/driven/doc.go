// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - FileStore: FileRecord persistence (sqlite, postgres, memory)
//   - BlobStore: Uploaded bytes (filesystem, S3)
//   - ExtractorRegistry: Turns blobs into plain text
//   - Classifier: Assigns a Kind from text and filename
//   - Chunker: Splits text into overlapping windows
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: The one shared chunk collection (sqlite, memory, Milvus)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService / AnswerGenerator: Without them queries return retrieved
//     context only.
//   - PromptStore: Without it built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor or driving package
package driven
