// Package tiktoken counts prompt tokens with OpenAI's BPE encodings.
package tiktoken

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens for a single encoding.
type Tokenizer struct {
	enc  *tiktoken.Tiktoken
	name string
}

// New resolves model as a model name first and as an encoding name second,
// so both "gpt-4o" and "cl100k_base" work.
func New(model string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(model)
		if err != nil {
			return nil, fmt.Errorf("tiktoken: no encoding for %q: %w", model, err)
		}
	}
	return &Tokenizer{enc: enc, name: model}, nil
}

// Name is the model or encoding the tokenizer was built for.
func (t *Tokenizer) Name() string { return t.name }

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.Encode(text))
}

func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}
