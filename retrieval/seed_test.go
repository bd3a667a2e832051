package retrieval

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSeed(t *testing.T) {
	docs := DefaultSeed()
	if len(docs) != 5 {
		t.Fatalf("DefaultSeed() returned %d documents, want 5", len(docs))
	}
	if docs[0].ID != "doc-001" || docs[0].Category != "password_reset" {
		t.Errorf("first document = %+v", docs[0])
	}
	for _, d := range docs {
		if d.Text == "" || d.Source == "" {
			t.Errorf("document %s is incomplete", d.ID)
		}
	}
}

func TestLoadSeedFile(t *testing.T) {
	docs, err := LoadSeedFile(filepath.Join("testdata", "kb.yaml"))
	if err != nil {
		t.Fatalf("LoadSeedFile() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[1].Format != FormatHTML {
		t.Errorf("Format = %q, want html", docs[1].Format)
	}
}

func TestLoadSeedUnknownField(t *testing.T) {
	_, err := LoadSeed(strings.NewReader("documents:\n  - id: a\n    body: x\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadSeedEmpty(t *testing.T) {
	docs, err := LoadSeed(strings.NewReader(""))
	if err != nil || len(docs) != 0 {
		t.Errorf("LoadSeed(empty) = %v, %v", docs, err)
	}
}
