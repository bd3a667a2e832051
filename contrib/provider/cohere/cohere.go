package cohere

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

const (
	backend      = "cohere"
	cohereAPIURL = "https://api.cohere.ai/v1/chat"
)

// Config holds Cohere provider configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // full chat endpoint URL; defaults to the public API
	Timeout time.Duration
}

// Provider implements generation.Generator with the Cohere chat API.
type Provider struct {
	config Config
	client *http.Client
}

var _ generation.Generator = (*Provider)(nil)

// New creates a new Cohere provider
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "command-r"
	}
	if config.BaseURL == "" {
		config.BaseURL = cohereAPIURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &Provider{config: config, client: &http.Client{Timeout: config.Timeout}}
}

type cohereRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
	P           float64 `json:"p,omitempty"`
}

type cohereResponse struct {
	Text    string `json:"text"`
	Message string `json:"message,omitempty"`
}

// Generate sends the prompt as a single chat message.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (string, error) {
	if p.config.APIKey == "" {
		return "", generation.Failedf(backend, "API key not configured")
	}

	reqBody, err := json.Marshal(cohereRequest{
		Model:       p.config.Model,
		Message:     req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		P:           req.TopP,
	})
	if err != nil {
		return "", generation.Failed(backend, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", generation.Failed(backend, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return "", generation.Failed(backend, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return "", generation.Failed(backend, fmt.Errorf("read response: %w", err))
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", generation.Failedf(backend, "status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var resp cohereResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", generation.Failed(backend, fmt.Errorf("decode response: %w", err))
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", generation.Failedf(backend, "empty response %s", resp.Message)
	}
	return text, nil
}
