// Package provider builds the configured reply generator.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/ai-triage/config"
	"github.com/sweetpotato0/ai-triage/contrib/provider/claude"
	"github.com/sweetpotato0/ai-triage/contrib/provider/cohere"
	"github.com/sweetpotato0/ai-triage/contrib/provider/gemini"
	"github.com/sweetpotato0/ai-triage/contrib/provider/groq"
	"github.com/sweetpotato0/ai-triage/contrib/provider/ollama"
	"github.com/sweetpotato0/ai-triage/contrib/provider/openai"
	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/generation"
)

// New returns the generator selected by cfg.Provider. Backends holding a
// connection (gemini) implement io.Closer; callers should close them.
func New(ctx context.Context, cfg config.GeneratorConfig, timeout time.Duration) (generation.Generator, error) {
	switch cfg.Provider {
	case config.GeneratorOllama, "":
		return ollama.New(ollama.Config{BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: timeout}), nil
	case config.GeneratorOpenAI:
		return openai.New(openai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	case config.GeneratorGroq:
		return groq.New(groq.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	case config.GeneratorClaude:
		return claude.New(claude.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	case config.GeneratorGemini:
		return gemini.New(ctx, gemini.Config{APIKey: cfg.APIKey, Model: cfg.Model})
	case config.GeneratorCohere:
		return cohere.New(cohere.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: timeout}), nil
	default:
		return nil, fmt.Errorf("%w: unknown generator provider %q", errors.ErrInvalidInput, cfg.Provider)
	}
}
