// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/embedding"
	ollamaembed "github.com/custodia-labs/grabdocs/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/grabdocs/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/grabdocs/internal/adapters/driven/llm"
	anthropicllm "github.com/custodia-labs/grabdocs/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/grabdocs/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/grabdocs/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// fixHint tells the user how to repair provider settings.
const fixHint = "Run 'grabdocs settings show' and 'grabdocs settings set' to fix"

// InitResult contains the AI services the pipeline runs with.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	AnswerGenerator  driven.AnswerGenerator
	Warnings         []string // Non-fatal issues, e.g. an unreachable LLM or cache.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds the embedding service, which is required, and the answer
// generator, which degrades to nil with a warning.
func Init(settings *domain.AppSettings, prompts driven.PromptStore) (*InitResult, error) {
	result := &InitResult{}

	embedder, warnings, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured. %s", domain.ErrEmbeddingUnavailable, fixHint)
	}
	result.EmbeddingService = embedder
	result.Warnings = append(result.Warnings, warnings...)

	if settings.LLM.Provider == "" {
		return result, nil
	}
	llmSvc, err := CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		return result, nil
	}
	if llmSvc != nil {
		result.LLMService = llmSvc
		result.AnswerGenerator = llm.NewGenerator(llmSvc, llm.WithPromptStore(prompts))
	}
	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Cache problems are returned as warnings and leave the service uncached.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, []string, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	if settings.CacheRedisAddr == "" {
		return svc, nil, nil
	}
	cache, err := embedding.NewRedisCache(ctx, settings.CacheRedisAddr)
	if err != nil {
		return svc, []string{fmt.Sprintf("embedding cache disabled: %v", err)}, nil
	}
	ttl := time.Duration(settings.CacheTTLHours) * time.Hour
	return embedding.NewCachedService(svc, cache, ttl), nil, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Unconfigured settings are an error; callers check IsConfigured first.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider is not configured")
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("llm provider is not configured")
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

func embeddingTimeout(settings *domain.EmbeddingSettings) time.Duration {
	if settings.TimeoutSeconds <= 0 {
		return time.Duration(domain.DefaultEmbeddingTimeout) * time.Second
	}
	return time.Duration(settings.TimeoutSeconds) * time.Second
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    embeddingTimeout(settings),
		Dimensions: dimensions,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    embeddingTimeout(settings),
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
