package prompt

import (
	"strings"
	"testing"
)

type doc struct {
	Content         string
	SimilarityScore float64
}

type replyData struct {
	Title       string
	Description string
	Intent      string
	Documents   []doc
}

func TestSupportReplyWithDocuments(t *testing.T) {
	m := NewManager()
	got, err := m.Render(SupportReply, replyData{
		Title:       "Cannot login",
		Description: "I forgot my password",
		Intent:      "password_reset",
		Documents: []doc{
			{Content: "Click Forgot Password.", SimilarityScore: 0.912},
			{Content: "Passwords need 8 characters.", SimilarityScore: 0.7},
		},
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for _, want := range []string{
		"Ticket Title: Cannot login",
		"Ticket Description: I forgot my password",
		"Classified Intent: password_reset",
		"Relevant knowledge base articles:",
		"[Article 1] (Relevance: 0.91)\nClick Forgot Password.",
		"[Article 2] (Relevance: 0.70)\nPasswords need 8 characters.",
		"Keep the response under 300 words",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, NoArticlesNotice) {
		t.Error("prompt should not contain the no-articles notice")
	}
	if !strings.HasSuffix(got, "Response:") {
		t.Error("prompt should end with Response:")
	}
}

func TestSupportReplyWithoutDocuments(t *testing.T) {
	got, err := NewManager().Render(SupportReply, replyData{Title: "t", Description: "d", Intent: "question"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(got, NoArticlesNotice) {
		t.Error("prompt should contain the no-articles notice")
	}
	if strings.Contains(got, "[Article") {
		t.Error("prompt should not list articles")
	}
}

func TestManager(t *testing.T) {
	m := NewManager()

	t.Run("override", func(t *testing.T) {
		if err := m.RegisterString(SupportReply, "{{upper .Title}}"); err != nil {
			t.Fatalf("RegisterString() error = %v", err)
		}
		got, err := m.Render(SupportReply, replyData{Title: "vpn"})
		if err != nil || got != "VPN" {
			t.Errorf("Render() = %q, %v", got, err)
		}
	})

	t.Run("parse error", func(t *testing.T) {
		if err := m.RegisterString("bad", "{{.Title"); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := m.Render("nope", nil); err == nil {
			t.Error("expected not found error")
		}
	})

	t.Run("empty name", func(t *testing.T) {
		if err := m.Register(&Template{}); err == nil {
			t.Error("expected error for empty name")
		}
	})

	if got := m.List(); len(got) != 1 || got[0] != SupportReply {
		t.Errorf("List() = %v", got)
	}
}
