// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Pipeline drives uploads through extraction, classification, chunking
// and indexing, and answers queries through the Retriever. Indexing and
// deletion of one file are serialized by the Indexer's per-file lock.
package services
