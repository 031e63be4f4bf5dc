package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// TimeoutSeconds bounds a single embedding attempt.
	TimeoutSeconds int

	// RatePerSecond limits embedding calls. Zero disables limiting.
	RatePerSecond float64

	// CacheRedisAddr enables the redis embedding cache when set.
	CacheRedisAddr string

	// CacheTTLHours is the lifetime of cached embeddings.
	CacheTTLHours int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StorageBackend selects the file record store.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
	StorageMemory   StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StoragePostgres, StorageMemory:
		return true
	default:
		return false
	}
}

// VectorBackend selects the vector index.
type VectorBackend string

// Available vector backends.
const (
	VectorSQLite VectorBackend = "sqlite"
	VectorMemory VectorBackend = "memory"
	VectorMilvus VectorBackend = "milvus"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorSQLite, VectorMemory, VectorMilvus:
		return true
	default:
		return false
	}
}

// BlobBackend selects where uploaded bytes are kept.
type BlobBackend string

// Available blob backends.
const (
	BlobFilesystem BlobBackend = "filesystem"
	BlobS3         BlobBackend = "s3"
)

// IsValid returns true if the backend is recognised.
func (b BlobBackend) IsValid() bool {
	return b == BlobFilesystem || b == BlobS3
}

// StorageSettings holds file record store configuration.
type StorageSettings struct {
	Backend     StorageBackend
	PostgresDSN string
}

// BlobSettings holds blob store configuration.
type BlobSettings struct {
	Backend BlobBackend

	// Dir is the root directory for the filesystem backend.
	Dir string

	S3Bucket   string
	S3Region   string
	S3Prefix   string
	S3Endpoint string
}

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	Backend VectorBackend

	// Collection is the one logical collection shared by all owners.
	Collection string

	MilvusAddress string
}

// ChunkerSettings holds chunk window sizes in runes.
type ChunkerSettings struct {
	MaxChars     int
	OverlapChars int
}

// ClassifierSettings holds classifier configuration.
type ClassifierSettings struct {
	// PolicyFile overrides the built-in keyword policy when set.
	PolicyFile string
}

// PipelineSettings holds orchestration limits.
type PipelineSettings struct {
	// Workers bounds concurrent ingestion in batch and watch modes.
	Workers int

	// TimeoutSeconds bounds one enrichment run.
	TimeoutSeconds int

	// ExtractTimeoutSeconds bounds content extraction.
	ExtractTimeoutSeconds int
}

// RetrievalSettings holds query defaults.
type RetrievalSettings struct {
	TopK int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Storage    StorageSettings
	Blob       BlobSettings
	Vector     VectorSettings
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Chunker    ChunkerSettings
	Classifier ClassifierSettings
	Pipeline   PipelineSettings
	Retrieval  RetrievalSettings
}

// Setting defaults.
const (
	DefaultCollection             = "user_documents"
	DefaultChunkMaxChars          = 1000
	MaxChunkChars                 = 16000
	DefaultChunkOverlapChars      = 200
	DefaultWorkers                = 4
	DefaultPipelineTimeout        = 300
	DefaultExtractTimeout         = 30
	DefaultEmbeddingTimeout       = 30
	DefaultEmbeddingCacheTTLHours = 24
)

// DefaultAppSettings returns settings with sensible defaults.
// AI features (Embedding, LLM) are left unconfigured by default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{Backend: StorageSQLite},
		Blob:    BlobSettings{Backend: BlobFilesystem},
		Vector: VectorSettings{
			Backend:    VectorSQLite,
			Collection: DefaultCollection,
		},
		Embedding: EmbeddingSettings{
			TimeoutSeconds: DefaultEmbeddingTimeout,
			CacheTTLHours:  DefaultEmbeddingCacheTTLHours,
		},
		LLM: LLMSettings{},
		Chunker: ChunkerSettings{
			MaxChars:     DefaultChunkMaxChars,
			OverlapChars: DefaultChunkOverlapChars,
		},
		Pipeline: PipelineSettings{
			Workers:               DefaultWorkers,
			TimeoutSeconds:        DefaultPipelineTimeout,
			ExtractTimeoutSeconds: DefaultExtractTimeout,
		},
		Retrieval: RetrievalSettings{TopK: DefaultTopK},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support answer generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
