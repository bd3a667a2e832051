package tiktoken

import "testing"

// Encodings are fetched on first use, so the test is skipped when the
// BPE ranks cannot be loaded.
func newTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := New("cl100k_base")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	return tok
}

func TestCountTokens(t *testing.T) {
	tok := newTokenizer(t)

	if got := tok.CountTokens(""); got != 0 {
		t.Errorf("CountTokens(\"\") = %d, want 0", got)
	}
	text := "How do I reset my password?"
	ids := tok.Encode(text)
	if got := tok.CountTokens(text); got != len(ids) || got == 0 {
		t.Errorf("CountTokens() = %d, want %d", got, len(ids))
	}
	if got := tok.Decode(ids); got != text {
		t.Errorf("Decode(Encode()) = %q", got)
	}
}

func TestNewUnknownEncoding(t *testing.T) {
	if _, err := New("no-such-encoding"); err == nil {
		t.Error("New() expected error for unknown encoding")
	}
}
