// Package generation defines the contract for language model backends that
// draft ticket replies.
package generation

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ai-triage/errors"
)

// Request is a single-prompt completion request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Generator produces text for a prompt. A timeout, connection failure or
// malformed response is an error wrapping errors.ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Failed wraps err as a generation failure of the named backend.
func Failed(backend string, err error) error {
	return fmt.Errorf("%s: %w: %w", backend, errors.ErrGeneration, err)
}

// Failedf builds a generation failure from a message.
func Failedf(backend, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", backend, errors.ErrGeneration, fmt.Sprintf(format, args...))
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
