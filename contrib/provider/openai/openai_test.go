package openai

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/generation"
)

func TestProviderGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","logprobs":null,
				"message":{"role":"assistant","content":" Reset it from the login page. ","refusal":null}}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"}, option.WithMaxRetries(0))
	text, err := p.Generate(context.Background(), generation.Request{Prompt: "help", MaxTokens: 500, Temperature: 0.7, TopP: 0.9})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Reset it from the login page." {
		t.Errorf("Generate() = %q", text)
	}
	if body["max_completion_tokens"] != float64(500) || body["top_p"] != 0.9 {
		t.Errorf("request body = %v", body)
	}
}

func TestProviderGenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New(Config{APIKey: "k", BaseURL: srv.URL, Name: "groq"}, option.WithMaxRetries(0))
	_, err := p.Generate(context.Background(), generation.Request{Prompt: "x"})
	if !stderrors.Is(err, errors.ErrGeneration) {
		t.Fatalf("error = %v, want ErrGeneration", err)
	}
}
