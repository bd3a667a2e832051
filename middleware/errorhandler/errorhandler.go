// Package errorhandler converts stage panics into errors and lets callers
// rewrite stage errors before they reach the pipeline.
package errorhandler

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/sweetpotato0/ai-triage/middleware"
)

// ErrPanic marks an error recovered from a panicking stage.
var ErrPanic = errors.New("stage panicked")

// ErrorHandlerFunc handles errors
type ErrorHandlerFunc func(*middleware.Context, error) error

// ErrorHandler passes stage errors through a handler function.
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(ctx, err)
	}
	return err
}

// Recoverer turns a panic in a downstream handler into an error wrapping
// ErrPanic so a single faulty stage cannot take down the process.
type Recoverer struct {
	logger *slog.Logger
}

// NewRecoverer creates a panic recovery middleware. logger may be nil.
func NewRecoverer(logger *slog.Logger) *Recoverer {
	return &Recoverer{logger: logger}
}

func (m *Recoverer) Name() string {
	return "Recoverer"
}

func (m *Recoverer) Execute(ctx *middleware.Context, next middleware.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			if m.logger != nil {
				m.logger.Error("recovered from panic", "stage", ctx.Stage, "ticket_id", ctx.TicketID,
					"panic", r, "stack", string(debug.Stack()))
			}
		}
	}()
	return next(ctx)
}
