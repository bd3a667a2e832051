// Package runner executes triage pipelines for many tickets with bounded
// concurrency.
package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sweetpotato0/ai-triage/ticket"
)

// Processor runs the pipeline for one ticket.
type Processor interface {
	Process(ctx context.Context, ticketID, title, description string) (*ticket.Result, error)
}

// Task represents a ticket to be processed
type Task struct {
	TicketID    string
	Title       string
	Description string
}

// Result represents the result of a task execution
type Result struct {
	TicketID string
	Result   *ticket.Result
	Error    error
}

// Runner bounds how many pipelines run at once across all callers.
type Runner struct {
	proc           Processor
	maxConcurrency int
	semaphore      chan struct{}
}

// New creates a new runner
func New(proc Processor, maxConcurrency int) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Runner{
		proc:           proc,
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
	}
}

// MaxConcurrency returns the concurrency limit.
func (r *Runner) MaxConcurrency() int { return r.maxConcurrency }

// Run processes one ticket once a slot is free. A panic in the pipeline is
// returned as an error.
func (r *Runner) Run(ctx context.Context, task Task) (res *ticket.Result, err error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("panic processing ticket %s: %v", task.TicketID, p)
		}
	}()
	return r.proc.Process(ctx, task.TicketID, task.Title, task.Description)
}

// RunBatch processes tasks concurrently and returns one Result per task in
// input order. Per-ticket failures are reported in Result.Error and do not
// stop the other tickets.
func (r *Runner) RunBatch(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)

	for i, task := range tasks {
		g.Go(func() error {
			res, err := r.Run(gctx, task)
			results[i] = Result{TicketID: task.TicketID, Result: res, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
