package cohere

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/generation"
)

func TestProviderGenerate(t *testing.T) {
	var got cohereRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer co-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"text":"Please reinstall the client."}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "co-key", BaseURL: srv.URL})
	text, err := p.Generate(context.Background(), generation.Request{Prompt: "vpn", MaxTokens: 500, Temperature: 0.7, TopP: 0.9})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Please reinstall the client." {
		t.Errorf("Generate() = %q", text)
	}
	if got.Message != "vpn" || got.P != 0.9 || got.MaxTokens != 500 {
		t.Errorf("request = %+v", got)
	}
}

func TestProviderGenerateErrors(t *testing.T) {
	if _, err := New(Config{}).Generate(context.Background(), generation.Request{Prompt: "x"}); !stderrors.Is(err, errors.ErrGeneration) {
		t.Errorf("missing key error = %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()
	if _, err := New(Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), generation.Request{Prompt: "x"}); !stderrors.Is(err, errors.ErrGeneration) {
		t.Errorf("empty text error = %v", err)
	}
}
