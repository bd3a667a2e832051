// Package logger logs the start and outcome of every stage.
package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/ai-triage/middleware"
)

// StageLogger logs stage start and completion with the ticket id and
// duration.
type StageLogger struct {
	logger *slog.Logger
}

// NewStageLogger creates a stage logging middleware. A nil logger disables
// output.
func NewStageLogger(logger *slog.Logger) *StageLogger {
	return &StageLogger{logger: logger}
}

// Name returns the middleware name
func (m *StageLogger) Name() string {
	return "StageLogger"
}

// Execute logs around the stage
func (m *StageLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.logger == nil {
		return next(ctx)
	}
	m.logger.Info("stage started", "stage", ctx.Stage, "ticket_id", ctx.TicketID)

	start := time.Now()
	err := next(ctx)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.Error("stage failed", "stage", ctx.Stage, "ticket_id", ctx.TicketID,
			"duration_ms", elapsed.Milliseconds(), "error", err)
	} else {
		m.logger.Info("stage completed", "stage", ctx.Stage, "ticket_id", ctx.TicketID,
			"duration_ms", elapsed.Milliseconds())
	}
	return err
}
