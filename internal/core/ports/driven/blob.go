package driven

import "context"

// BlobStore keeps the raw bytes of uploaded files.
type BlobStore interface {
	// Put stores data under key, overwriting any existing blob.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a blob. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
