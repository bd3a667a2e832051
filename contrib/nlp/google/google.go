// Package google implements nlp.Service on top of the Google Cloud Natural
// Language API (v1).
package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ai-triage/nlp"
	"github.com/sweetpotato0/ai-triage/ticket"
	language "google.golang.org/api/language/v1"
	"google.golang.org/api/option"
)

// Document sentiment scores at or beyond these bounds are labelled
// positive or negative.
const (
	positiveThreshold = 0.25
	negativeThreshold = -0.25
)

// Client wraps a language.Service.
type Client struct {
	svc      *language.Service
	language string
}

var _ nlp.Service = (*Client)(nil)

// New creates a client. apiKey may be empty when application default
// credentials are configured; extra options are passed to the API client.
func New(ctx context.Context, apiKey, lang string, opts ...option.ClientOption) (*Client, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := language.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google nlp: create service: %w", err)
	}
	return &Client{svc: svc, language: lang}, nil
}

func (c *Client) document(text string) *language.Document {
	return &language.Document{
		Content:  text,
		Type:     "PLAIN_TEXT",
		Language: c.language,
	}
}

// ExtractEntities uses analyzeEntities; salience stands in for confidence.
func (c *Client) ExtractEntities(ctx context.Context, text string) ([]ticket.Entity, error) {
	resp, err := c.svc.Documents.AnalyzeEntities(&language.AnalyzeEntitiesRequest{
		Document:     c.document(text),
		EncodingType: "UTF8",
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google nlp: analyze entities: %w", err)
	}
	return toEntities(resp.Entities), nil
}

// AnalyzeSentiment buckets the document score into three labels.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (ticket.Sentiment, error) {
	resp, err := c.svc.Documents.AnalyzeSentiment(&language.AnalyzeSentimentRequest{
		Document:     c.document(text),
		EncodingType: "UTF8",
	}).Context(ctx).Do()
	if err != nil {
		return ticket.SentimentNeutral, fmt.Errorf("google nlp: analyze sentiment: %w", err)
	}
	if resp.DocumentSentiment == nil {
		return ticket.SentimentNeutral, nil
	}
	return sentimentFromScore(resp.DocumentSentiment.Score), nil
}

// ExtractKeyPhrases derives phrases from the syntax analysis since the v1
// API has no key phrase endpoint.
func (c *Client) ExtractKeyPhrases(ctx context.Context, text string) ([]string, error) {
	resp, err := c.svc.Documents.AnalyzeSyntax(&language.AnalyzeSyntaxRequest{
		Document:     c.document(text),
		EncodingType: "UTF8",
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google nlp: analyze syntax: %w", err)
	}
	return phrasesFromTokens(resp.Tokens), nil
}

func toEntities(in []*language.Entity) []ticket.Entity {
	out := make([]ticket.Entity, 0, len(in))
	for _, e := range in {
		if e == nil {
			continue
		}
		out = append(out, ticket.Entity{
			Text:       e.Name,
			Category:   e.Type,
			Confidence: e.Salience,
		})
	}
	return out
}

func sentimentFromScore(score float64) ticket.Sentiment {
	switch {
	case score >= positiveThreshold:
		return ticket.SentimentPositive
	case score <= negativeThreshold:
		return ticket.SentimentNegative
	default:
		return ticket.SentimentNeutral
	}
}

// phrasesFromTokens groups consecutive noun, adjective and number tokens into
// phrases. Verbs are kept as single-word phrases so that "crash" or "reset"
// still reach the keyword rules.
func phrasesFromTokens(tokens []*language.Token) []string {
	phrases := []string{}
	var run []string
	flush := func() {
		if len(run) > 0 {
			phrases = append(phrases, strings.ToLower(strings.Join(run, " ")))
			run = run[:0]
		}
	}

	for _, tok := range tokens {
		if tok == nil || tok.Text == nil || tok.PartOfSpeech == nil {
			flush()
			continue
		}
		switch tok.PartOfSpeech.Tag {
		case "NOUN", "ADJ", "NUM":
			run = append(run, tok.Text.Content)
		case "VERB":
			flush()
			phrases = append(phrases, strings.ToLower(tok.Text.Content))
		default:
			flush()
		}
	}
	flush()
	return phrases
}
