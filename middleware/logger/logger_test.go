package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/sweetpotato0/ai-triage/middleware"
)

func TestStageLogger(t *testing.T) {
	t.Run("logs start and completion", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewStageLogger(slog.New(slog.NewTextHandler(&buf, nil)))

		ctx := middleware.NewContext(context.Background(), "retrieve")
		ctx.TicketID = "TKT-1"
		if err := m.Execute(ctx, func(*middleware.Context) error { return nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		for _, want := range []string{"stage started", "stage completed", "stage=retrieve", "ticket_id=TKT-1"} {
			if !strings.Contains(out, want) {
				t.Errorf("log output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("logs failures and returns the error", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewStageLogger(slog.New(slog.NewTextHandler(&buf, nil)))

		boom := errors.New("boom")
		err := m.Execute(middleware.NewContext(context.Background(), "draft"), func(*middleware.Context) error { return boom })
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want boom", err)
		}
		if !strings.Contains(buf.String(), "stage failed") {
			t.Errorf("failure not logged:\n%s", buf.String())
		}
	})

	t.Run("handles nil logger", func(t *testing.T) {
		err := NewStageLogger(nil).Execute(middleware.NewContext(context.Background(), "x"), func(*middleware.Context) error { return nil })
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
