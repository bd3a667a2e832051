package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweetpotato0/ai-triage/middleware"
)

func TestTimeout(t *testing.T) {
	t.Run("stage sees a deadline", func(t *testing.T) {
		ctx := middleware.NewContext(context.Background(), "draft")
		err := New(20*time.Millisecond).Execute(ctx, func(c *middleware.Context) error {
			<-c.Context().Done()
			return c.Context().Err()
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want DeadlineExceeded", err)
		}
		if ctx.Context().Err() != nil {
			t.Error("parent context should be restored and live")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		ctx := middleware.NewContext(context.Background(), "draft")
		err := New(0).Execute(ctx, func(c *middleware.Context) error {
			if _, ok := c.Context().Deadline(); ok {
				return errors.New("unexpected deadline")
			}
			return nil
		})
		if err != nil {
			t.Error(err)
		}
	})
}
