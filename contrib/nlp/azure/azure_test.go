package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweetpotato0/ai-triage/ticket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Documents) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		text := req.Documents[0].Text

		switch r.URL.Path {
		case apiPath + "/entities/recognition/general":
			_, _ = w.Write([]byte(`{"documents":[{"id":"1","entities":[
				{"text":"VPN","category":"Product","confidenceScore":0.91},
				{"text":"Monday","category":"DateTime","subcategory":"Date","confidenceScore":0.8}]}],"errors":[]}`))
		case apiPath + "/sentiment":
			label := "positive"
			if strings.Contains(text, "mixed") {
				label = "mixed"
			}
			_, _ = w.Write([]byte(`{"documents":[{"id":"1","sentiment":"` + label + `"}],"errors":[]}`))
		case apiPath + "/keyPhrases":
			if strings.Contains(text, "fail") {
				_, _ = w.Write([]byte(`{"documents":[],"errors":[{"id":"1","error":{"code":"InvalidDocument","message":"empty"}}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"documents":[{"id":"1","keyPhrases":["VPN Connection","Error"]}],"errors":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestClientExtractEntities(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c := New(srv.URL+"/", "secret")
	entities, err := c.ExtractEntities(context.Background(), "VPN broke on Monday")
	if err != nil {
		t.Fatalf("ExtractEntities() error = %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("len(entities) = %d, want 2", len(entities))
	}
	want := ticket.Entity{Text: "Monday", Category: "DateTime", Subcategory: "Date", Confidence: 0.8}
	if entities[1] != want {
		t.Errorf("entities[1] = %+v, want %+v", entities[1], want)
	}
}

func TestClientAnalyzeSentiment(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := New(srv.URL, "secret")

	got, err := c.AnalyzeSentiment(context.Background(), "thanks a lot")
	if err != nil || got != ticket.SentimentPositive {
		t.Errorf("AnalyzeSentiment() = %q, %v; want positive", got, err)
	}
	got, err = c.AnalyzeSentiment(context.Background(), "mixed feelings")
	if err != nil || got != ticket.SentimentNeutral {
		t.Errorf("mixed sentiment = %q, %v; want neutral", got, err)
	}
}

func TestClientExtractKeyPhrases(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := New(srv.URL, "secret")

	phrases, err := c.ExtractKeyPhrases(context.Background(), "vpn error")
	if err != nil {
		t.Fatalf("ExtractKeyPhrases() error = %v", err)
	}
	if len(phrases) != 2 || phrases[0] != "vpn connection" || phrases[1] != "error" {
		t.Errorf("phrases = %v", phrases)
	}

	if _, err := c.ExtractKeyPhrases(context.Background(), "fail please"); err == nil {
		t.Error("expected document error to surface")
	}
}

func TestClientErrors(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	if _, err := New(srv.URL, "wrong").ExtractEntities(context.Background(), "x"); err == nil {
		t.Error("expected error on 401")
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	c := New(slow.URL, "secret", WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	if _, err := c.AnalyzeSentiment(context.Background(), "x"); err == nil {
		t.Error("expected timeout error")
	}
}
