// Package ollama drafts replies with a local Ollama server via /api/generate.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweetpotato0/ai-triage/generation"
)

const backend = "ollama"

// Config holds Ollama provider configuration
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns default Ollama configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:11434",
		Model:   "qwen2.5:3b",
		Timeout: 60 * time.Second,
	}
}

// Provider implements generation.Generator against a non-streaming
// /api/generate call.
type Provider struct {
	config Config
	client *http.Client
}

var _ generation.Generator = (*Provider)(nil)

// New creates a provider; zero fields fall back to DefaultConfig.
func New(config Config) *Provider {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Provider{config: config, client: &http.Client{Timeout: config.Timeout}}
}

type options struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate returns the trimmed model response.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  p.config.Model,
		Prompt: req.Prompt,
		Stream: false,
		Options: options{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
		},
	})
	if err != nil {
		return "", generation.Failed(backend, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", generation.Failed(backend, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", generation.Failed(backend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", generation.Failedf(backend, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", generation.Failed(backend, fmt.Errorf("decode response: %w", err))
	}
	if out.Error != "" {
		return "", generation.Failedf(backend, "%s", out.Error)
	}
	return strings.TrimSpace(out.Response), nil
}
