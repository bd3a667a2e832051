// Package azure implements nlp.Service against the Azure AI Language
// (Text Analytics v3.1) REST API.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweetpotato0/ai-triage/nlp"
	"github.com/sweetpotato0/ai-triage/ticket"
)

const apiPath = "/text/analytics/v3.1"

// Client calls the Text Analytics endpoints for a single-document request.
type Client struct {
	endpoint   string
	apiKey     string
	language   string
	httpClient *http.Client
}

var _ nlp.Service = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (and therefore the timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithLanguage sets the document language hint. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(cl *Client) {
		if lang != "" {
			cl.language = lang
		}
	}
}

// New creates a client for the given resource endpoint, e.g.
// https://<resource>.cognitiveservices.azure.com.
func New(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		language:   "en",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type document struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type request struct {
	Documents []document `json:"documents"`
}

type docError struct {
	ID    string `json:"id"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type entitiesResponse struct {
	Documents []struct {
		ID       string `json:"id"`
		Entities []struct {
			Text            string  `json:"text"`
			Category        string  `json:"category"`
			Subcategory     string  `json:"subcategory"`
			ConfidenceScore float64 `json:"confidenceScore"`
		} `json:"entities"`
	} `json:"documents"`
	Errors []docError `json:"errors"`
}

type sentimentResponse struct {
	Documents []struct {
		ID        string `json:"id"`
		Sentiment string `json:"sentiment"`
	} `json:"documents"`
	Errors []docError `json:"errors"`
}

type keyPhrasesResponse struct {
	Documents []struct {
		ID         string   `json:"id"`
		KeyPhrases []string `json:"keyPhrases"`
	} `json:"documents"`
	Errors []docError `json:"errors"`
}

// ExtractEntities calls /entities/recognition/general.
func (c *Client) ExtractEntities(ctx context.Context, text string) ([]ticket.Entity, error) {
	var resp entitiesResponse
	if err := c.call(ctx, "/entities/recognition/general", text, &resp); err != nil {
		return nil, err
	}
	if err := firstError(resp.Errors); err != nil {
		return nil, err
	}
	entities := []ticket.Entity{}
	for _, doc := range resp.Documents {
		for _, e := range doc.Entities {
			entities = append(entities, ticket.Entity{
				Text:        e.Text,
				Category:    e.Category,
				Subcategory: e.Subcategory,
				Confidence:  e.ConfidenceScore,
			})
		}
	}
	return entities, nil
}

// AnalyzeSentiment calls /sentiment. "mixed" is reported as neutral.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (ticket.Sentiment, error) {
	var resp sentimentResponse
	if err := c.call(ctx, "/sentiment", text, &resp); err != nil {
		return ticket.SentimentNeutral, err
	}
	if err := firstError(resp.Errors); err != nil {
		return ticket.SentimentNeutral, err
	}
	if len(resp.Documents) == 0 {
		return ticket.SentimentNeutral, fmt.Errorf("azure: sentiment response has no documents")
	}
	return ticket.ParseSentiment(resp.Documents[0].Sentiment), nil
}

// ExtractKeyPhrases calls /keyPhrases and lower-cases the result.
func (c *Client) ExtractKeyPhrases(ctx context.Context, text string) ([]string, error) {
	var resp keyPhrasesResponse
	if err := c.call(ctx, "/keyPhrases", text, &resp); err != nil {
		return nil, err
	}
	if err := firstError(resp.Errors); err != nil {
		return nil, err
	}
	phrases := []string{}
	for _, doc := range resp.Documents {
		for _, p := range doc.KeyPhrases {
			phrases = append(phrases, strings.ToLower(p))
		}
	}
	return phrases, nil
}

func (c *Client) call(ctx context.Context, path, text string, out any) error {
	body, err := json.Marshal(request{Documents: []document{{ID: "1", Language: c.language, Text: text}}})
	if err != nil {
		return fmt.Errorf("azure: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+apiPath+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("azure: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("azure: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("azure: %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("azure: decode %s response: %w", path, err)
	}
	return nil
}

func firstError(errs []docError) error {
	if len(errs) == 0 {
		return nil
	}
	e := errs[0].Error
	return fmt.Errorf("azure: document %s: %s: %s", errs[0].ID, e.Code, e.Message)
}
