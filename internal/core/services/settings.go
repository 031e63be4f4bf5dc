package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// DefaultOllamaURL is used for local providers without a configured base URL.
const DefaultOllamaURL = "http://localhost:11434"

// setting binds one dot-notation config key to a field of AppSettings.
type setting struct {
	key    string
	secret bool

	// value returns the typed value written to the config store.
	value func(*domain.AppSettings) any

	// parse validates raw and assigns it.
	parse func(*domain.AppSettings, string) error
}

func stringSetting(key string, field func(*domain.AppSettings) *string) setting {
	return setting{
		key:   key,
		value: func(a *domain.AppSettings) any { return *field(a) },
		parse: func(a *domain.AppSettings, raw string) error {
			*field(a) = raw
			return nil
		},
	}
}

func secretSetting(key string, field func(*domain.AppSettings) *string) setting {
	s := stringSetting(key, field)
	s.secret = true
	return s
}

func intSetting(key string, minimum int, field func(*domain.AppSettings) *int) setting {
	return setting{
		key:   key,
		value: func(a *domain.AppSettings) any { return *field(a) },
		parse: func(a *domain.AppSettings, raw string) error {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || n < minimum {
				return fmt.Errorf("%w: %s must be an integer >= %d", domain.ErrInvalidInput, key, minimum)
			}
			*field(a) = n
			return nil
		},
	}
}

// rangeSetting is an intSetting with an upper bound.
func rangeSetting(key string, minimum, maximum int, field func(*domain.AppSettings) *int) setting {
	st := intSetting(key, minimum, field)
	parse := st.parse
	st.parse = func(a *domain.AppSettings, raw string) error {
		if err := parse(a, raw); err != nil {
			return err
		}
		if *field(a) > maximum {
			return fmt.Errorf("%w: %s must be <= %d", domain.ErrInvalidInput, key, maximum)
		}
		return nil
	}
	return st
}

func floatSetting(key string, field func(*domain.AppSettings) *float64) setting {
	return setting{
		key:   key,
		value: func(a *domain.AppSettings) any { return *field(a) },
		parse: func(a *domain.AppSettings, raw string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || f < 0 {
				return fmt.Errorf("%w: %s must be a number >= 0", domain.ErrInvalidInput, key)
			}
			*field(a) = f
			return nil
		},
	}
}

// enumSetting accepts only values for which valid returns true.
func enumSetting[T ~string](key string, valid func(T) bool, field func(*domain.AppSettings) *T) setting {
	return setting{
		key:   key,
		value: func(a *domain.AppSettings) any { return string(*field(a)) },
		parse: func(a *domain.AppSettings, raw string) error {
			v := T(strings.ToLower(strings.TrimSpace(raw)))
			if v != "" && !valid(v) {
				return fmt.Errorf("%w: %s does not accept %q", domain.ErrInvalidInput, key, raw)
			}
			*field(a) = v
			return nil
		},
	}
}

// settings lists every configurable key in display order.
var settings = []setting{
	enumSetting("storage.backend", domain.StorageBackend.IsValid,
		func(a *domain.AppSettings) *domain.StorageBackend { return &a.Storage.Backend }),
	secretSetting("storage.postgres_dsn", func(a *domain.AppSettings) *string { return &a.Storage.PostgresDSN }),

	enumSetting("blob.backend", domain.BlobBackend.IsValid,
		func(a *domain.AppSettings) *domain.BlobBackend { return &a.Blob.Backend }),
	stringSetting("blob.dir", func(a *domain.AppSettings) *string { return &a.Blob.Dir }),
	stringSetting("blob.s3_bucket", func(a *domain.AppSettings) *string { return &a.Blob.S3Bucket }),
	stringSetting("blob.s3_region", func(a *domain.AppSettings) *string { return &a.Blob.S3Region }),
	stringSetting("blob.s3_prefix", func(a *domain.AppSettings) *string { return &a.Blob.S3Prefix }),
	stringSetting("blob.s3_endpoint", func(a *domain.AppSettings) *string { return &a.Blob.S3Endpoint }),

	enumSetting("vector.backend", domain.VectorBackend.IsValid,
		func(a *domain.AppSettings) *domain.VectorBackend { return &a.Vector.Backend }),
	stringSetting("vector.collection", func(a *domain.AppSettings) *string { return &a.Vector.Collection }),
	stringSetting("vector.milvus_address", func(a *domain.AppSettings) *string { return &a.Vector.MilvusAddress }),

	enumSetting("embedding.provider", isEmbeddingProvider,
		func(a *domain.AppSettings) *domain.AIProvider { return &a.Embedding.Provider }),
	stringSetting("embedding.model", func(a *domain.AppSettings) *string { return &a.Embedding.Model }),
	stringSetting("embedding.base_url", func(a *domain.AppSettings) *string { return &a.Embedding.BaseURL }),
	secretSetting("embedding.api_key", func(a *domain.AppSettings) *string { return &a.Embedding.APIKey }),
	intSetting("embedding.timeout_seconds", 1, func(a *domain.AppSettings) *int { return &a.Embedding.TimeoutSeconds }),
	floatSetting("embedding.rate_per_second", func(a *domain.AppSettings) *float64 { return &a.Embedding.RatePerSecond }),
	stringSetting("embedding.cache_redis_addr", func(a *domain.AppSettings) *string { return &a.Embedding.CacheRedisAddr }),
	intSetting("embedding.cache_ttl_hours", 1, func(a *domain.AppSettings) *int { return &a.Embedding.CacheTTLHours }),

	enumSetting("llm.provider", domain.AIProvider.IsValid,
		func(a *domain.AppSettings) *domain.AIProvider { return &a.LLM.Provider }),
	stringSetting("llm.model", func(a *domain.AppSettings) *string { return &a.LLM.Model }),
	stringSetting("llm.base_url", func(a *domain.AppSettings) *string { return &a.LLM.BaseURL }),
	secretSetting("llm.api_key", func(a *domain.AppSettings) *string { return &a.LLM.APIKey }),

	rangeSetting("chunker.max_chars", 1, domain.MaxChunkChars, func(a *domain.AppSettings) *int { return &a.Chunker.MaxChars }),
	intSetting("chunker.overlap_chars", 0, func(a *domain.AppSettings) *int { return &a.Chunker.OverlapChars }),
	stringSetting("classifier.policy_file", func(a *domain.AppSettings) *string { return &a.Classifier.PolicyFile }),
	intSetting("retrieval.top_k", 1, func(a *domain.AppSettings) *int { return &a.Retrieval.TopK }),
	intSetting("pipeline.workers", 1, func(a *domain.AppSettings) *int { return &a.Pipeline.Workers }),
	intSetting("pipeline.timeout_seconds", 1, func(a *domain.AppSettings) *int { return &a.Pipeline.TimeoutSeconds }),
	intSetting("pipeline.extract_timeout_seconds", 1,
		func(a *domain.AppSettings) *int { return &a.Pipeline.ExtractTimeoutSeconds }),
}

func isEmbeddingProvider(p domain.AIProvider) bool {
	return slices.Contains(domain.AllEmbeddingProviders(), p)
}

func lookupSetting(key string) (setting, bool) {
	for _, s := range settings {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Stored values that fail
// validation fall back to the defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	result := domain.DefaultAppSettings()
	for _, st := range settings {
		raw := s.configStore.GetString(st.key)
		if raw == "" {
			continue
		}
		_ = st.parse(&result, raw)
	}
	return &result, nil
}

// Save persists application settings. Empty secrets are not written, so
// saving settings read without keys never erases them.
func (s *SettingsService) Save(a *domain.AppSettings) error {
	for _, st := range settings {
		v := st.value(a)
		if st.secret && v == "" {
			continue
		}
		if err := s.configStore.Set(st.key, v); err != nil {
			return fmt.Errorf("save %s: %w", st.key, err)
		}
	}
	return nil
}

// Set updates a single key.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(strings.ToLower(strings.TrimSpace(key)))
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	current, err := s.Get()
	if err != nil {
		return err
	}
	if err := st.parse(current, value); err != nil {
		return err
	}
	if err := s.configStore.Set(st.key, st.value(current)); err != nil {
		return fmt.Errorf("save %s: %w", st.key, err)
	}
	return nil
}

// Entries returns every setting for display, with secrets masked.
func (s *SettingsService) Entries() ([]driving.SettingEntry, error) {
	current, err := s.Get()
	if err != nil {
		return nil, err
	}

	entries := make([]driving.SettingEntry, 0, len(settings))
	for _, st := range settings {
		value := fmt.Sprint(st.value(current))
		if st.secret && value != "" {
			value = maskSecret(value)
		}
		entries = append(entries, driving.SettingEntry{Key: st.key, Value: value, Secret: st.secret})
	}
	return entries, nil
}

func maskSecret(v string) string {
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "****" + v[len(v)-4:]
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !isEmbeddingProvider(provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	current, err := s.Get()
	if err != nil {
		return err
	}

	current.Embedding.Provider = provider
	current.Embedding.Model = model
	if model == "" {
		current.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	current.Embedding.BaseURL = providerBaseURL(provider, current.Embedding.BaseURL)
	current.Embedding.APIKey = apiKey

	return s.Save(current)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	current, err := s.Get()
	if err != nil {
		return err
	}

	current.LLM.Provider = provider
	current.LLM.Model = model
	if model == "" {
		current.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	current.LLM.BaseURL = providerBaseURL(provider, current.LLM.BaseURL)
	current.LLM.APIKey = apiKey

	return s.Save(current)
}

// providerBaseURL keeps a local provider's URL and clears it for cloud ones.
func providerBaseURL(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return DefaultOllamaURL
	}
	return current
}

// Validate checks that current settings can start the pipeline.
func (s *SettingsService) Validate() error {
	a, err := s.Get()
	if err != nil {
		return err
	}

	if a.Storage.Backend == domain.StoragePostgres && a.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage backend postgres requires storage.postgres_dsn")
	}
	if a.Blob.Backend == domain.BlobS3 && a.Blob.S3Bucket == "" {
		return fmt.Errorf("blob backend s3 requires blob.s3_bucket")
	}
	if a.Vector.Backend == domain.VectorMilvus && a.Vector.MilvusAddress == "" {
		return fmt.Errorf("vector backend milvus requires vector.milvus_address")
	}
	if a.Chunker.MaxChars > domain.MaxChunkChars {
		return fmt.Errorf("chunker.max_chars %d exceeds the limit of %d", a.Chunker.MaxChars, domain.MaxChunkChars)
	}
	if !a.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider is not configured: run 'grabdocs settings set embedding.provider <ollama|openai>'")
	}
	if a.LLM.Provider != "" && !a.LLM.IsConfigured() {
		return fmt.Errorf("llm provider %s requires llm.api_key", a.LLM.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	a, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&a.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	a, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&a.LLM)
}
