// Package llm turns retrieved chunks into an answer with any LLMService.
// Provider adapters live in the sub-packages.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// Ensure Generator implements the interfaces.
var (
	_ driven.AnswerGenerator  = (*Generator)(nil)
	_ driven.PromptStoreAware = (*Generator)(nil)
)

// Fallback prompts used without a PromptStore or when a prompt fails to load.
const (
	defaultAnswerSystem = "You answer questions about the user's uploaded files. " +
		"Use only the excerpts provided. If they do not contain the answer, say so."
	defaultAnswerContext    = "Excerpts from the user's files:\n\n%s\n\nQuestion: %s"
	defaultGeneralKnowledge = "None of the user's files matched this question. " +
		"Answer it from general knowledge and say that no document was used.\n\nQuestion: %s"
)

// DefaultMaxContextChars bounds the excerpt text sent to the model.
const DefaultMaxContextChars = 12000

// Generator builds answer prompts from retrieved chunks.
type Generator struct {
	llm             driven.LLMService
	prompts         driven.PromptStore
	maxContextChars int
	opts            driven.ChatOptions
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithPromptStore sets the store answer prompts are loaded from.
func WithPromptStore(store driven.PromptStore) GeneratorOption {
	return func(g *Generator) {
		g.prompts = store
	}
}

// WithMaxContextChars bounds the excerpt text per request.
func WithMaxContextChars(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxContextChars = n
		}
	}
}

// WithChatOptions sets the completion limits.
func WithChatOptions(opts driven.ChatOptions) GeneratorOption {
	return func(g *Generator) {
		g.opts = opts
	}
}

// NewGenerator creates a Generator over svc.
func NewGenerator(svc driven.LLMService, opts ...GeneratorOption) *Generator {
	g := &Generator{
		llm:             svc,
		maxContextChars: DefaultMaxContextChars,
		opts:            driven.ChatOptions{MaxTokens: 1024, Temperature: 0.2},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (g *Generator) SetPromptStore(store driven.PromptStore) {
	g.prompts = store
}

// Generate answers query from chunks as a chat with a system prompt. With
// no chunks it sends a single general-knowledge prompt instead.
func (g *Generator) Generate(ctx context.Context, query string, chunks []domain.RetrievedChunk) (string, error) {
	if g.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	if len(chunks) == 0 {
		prompt := fmt.Sprintf(g.prompt(driven.PromptGeneralKnowledge, defaultGeneralKnowledge), query)
		answer, err := g.llm.Generate(ctx, prompt, driven.GenerateOptions{
			MaxTokens:   g.opts.MaxTokens,
			Temperature: g.opts.Temperature,
		})
		if err != nil {
			return "", fmt.Errorf("generate answer: %w", err)
		}
		return strings.TrimSpace(answer), nil
	}

	excerpts := FormatContext(chunks, g.maxContextChars)
	messages := []driven.ChatMessage{
		{Role: "system", Content: g.prompt(driven.PromptAnswerSystem, defaultAnswerSystem)},
		{Role: "user", Content: fmt.Sprintf(g.prompt(driven.PromptAnswerContext, defaultAnswerContext), excerpts, query)},
	}

	answer, err := g.llm.Chat(ctx, messages, g.opts)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (g *Generator) prompt(name, fallback string) string {
	if g.prompts == nil {
		return fallback
	}
	p, err := g.prompts.Load(name)
	if err != nil || p == "" {
		return fallback
	}
	return p
}

// FormatContext renders chunks in rank order as numbered excerpts, stopping
// before maxChars runes. The first excerpt is always included.
func FormatContext(chunks []domain.RetrievedChunk, maxChars int) string {
	var b strings.Builder
	used := 0
	for i, rc := range chunks {
		name := rc.File.OriginalFilename
		if name == "" {
			name = rc.Chunk.Filename
		}
		entry := fmt.Sprintf("[%d] %s (%s, part %d)\n%s\n\n", i+1, name, rc.Chunk.Kind, rc.Chunk.Ordinal+1,
			strings.TrimSpace(rc.Chunk.Text))
		n := len([]rune(entry))
		if i > 0 && maxChars > 0 && used+n > maxChars {
			break
		}
		b.WriteString(entry)
		used += n
	}
	return strings.TrimSpace(b.String())
}
