// Package timeout bounds how long a single stage may block on external
// services.
package timeout

import (
	"context"
	"time"

	"github.com/sweetpotato0/ai-triage/middleware"
)

// Timeout gives every stage its own deadline.
type Timeout struct {
	d time.Duration
}

// New creates a timeout middleware. A non-positive duration disables it.
func New(d time.Duration) *Timeout {
	return &Timeout{d: d}
}

func (m *Timeout) Name() string {
	return "Timeout"
}

func (m *Timeout) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.d <= 0 {
		return next(ctx)
	}
	parent := ctx.Context()
	stageCtx, cancel := context.WithTimeout(parent, m.d)
	defer cancel()

	ctx.SetContext(stageCtx)
	defer ctx.SetContext(parent)
	return next(ctx)
}
