package driving

import "github.com/custodia-labs/grabdocs/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single dot-notation key such as "chunker.max_chars".
	// Returns domain.ErrInvalidInput for unknown keys or malformed values.
	Set(key, value string) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that current settings can start the pipeline.
	Validate() error

	// Entries lists every setting for display, with secrets masked.
	Entries() ([]SettingEntry, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}

// SettingEntry is one displayed setting.
type SettingEntry struct {
	Key    string
	Value  string
	Secret bool
}
