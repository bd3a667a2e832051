package ollama

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sweetpotato0/ai-triage/errors"
)

func TestEmbedderEmbedBatch(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/api/embed" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := embedResponse{}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{float32(i), 1, 0})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := New(srv.URL+"/", "nomic-embed-text", 3, time.Second)
	got, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("batch used %d requests, want 1", calls)
	}
	if len(got) != 2 || got[1][0] != 1 {
		t.Errorf("EmbedBatch() = %v", got)
	}

	if _, err := New(srv.URL, "m", 4, time.Second).Embed(context.Background(), "x"); !stderrors.Is(err, errors.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestEmbedderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "missing", 3, time.Second).Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 404")
	}
}
