// Package middleware wraps pipeline stages with cross-cutting behaviour such
// as logging, tracing, panic recovery and timeouts.
package middleware

import (
	"context"
)

// Context represents the middleware execution context of one stage run.
type Context struct {
	// Stage is the pipeline stage being executed, e.g. "analyze".
	Stage string

	// Ticket input
	TicketID    string
	Title       string
	Description string

	// Error from execution, set by the chain once the stage returns.
	Error error

	// Metadata for passing data between middlewares
	Metadata map[string]any

	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, stage string) *Context {
	return &Context{
		Stage:    stage,
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// SetContext replaces the underlying context, e.g. with one carrying a span
// or a deadline. Handlers further down the chain observe the new value.
func (c *Context) SetContext(ctx context.Context) {
	c.context = ctx
}

// Middleware defines the interface for middleware components
// Middlewares can intercept and modify a stage execution
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	// It receives the current context and a next handler to continue the chain
	// Returning error will stop the middleware chain
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// MiddlewareChain represents a sequence of middleware to be executed
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *MiddlewareChain {
	return &MiddlewareChain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *MiddlewareChain) Add(m Middleware) *MiddlewareChain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Len returns the number of middlewares in the chain.
func (c *MiddlewareChain) Len() int {
	return len(c.middlewares)
}

// Execute runs all middlewares in the chain, then finalHandler. The final
// error is also stored on ctx.Error.
func (c *MiddlewareChain) Execute(ctx *Context, finalHandler Handler) error {
	err := c.executeMiddleware(ctx, 0, finalHandler)
	ctx.Error = err
	return err
}

// executeMiddleware recursively executes middlewares in sequence
func (c *MiddlewareChain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		// All middlewares executed, call the final handler
		return finalHandler(ctx)
	}

	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, nextHandler)
}
