// Package groq drafts replies through Groq's OpenAI-compatible endpoint.
package groq

import (
	"github.com/openai/openai-go/v3/option"
	"github.com/sweetpotato0/ai-triage/contrib/provider/openai"
)

// BaseURL is Groq's OpenAI-compatible API root.
const BaseURL = "https://api.groq.com/openai/v1"

// Config holds Groq provider configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// New creates a generator backed by the OpenAI SDK pointed at Groq.
func New(config Config, opts ...option.RequestOption) *openai.Provider {
	if config.Model == "" {
		config.Model = "llama-3.1-8b-instant"
	}
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	return openai.New(openai.Config{
		APIKey:  config.APIKey,
		BaseURL: config.BaseURL,
		Model:   config.Model,
		Name:    "groq",
	}, opts...)
}
