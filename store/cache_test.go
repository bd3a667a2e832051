package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// Set REDIS_ADDR to run against a real server.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis cache tests")
	}

	ctx := context.Background()
	c := NewRedisCache(RedisConfig{Addr: addr, Prefix: "triage-test:", TTL: time.Minute})
	defer c.Close()
	if err := c.Ping(ctx); err != nil {
		t.Skipf("Failed to connect to Redis: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		want := &ticket.Result{
			TicketID:            "TKT-CACHE001",
			DraftText:           "Try restarting the router.",
			Confidence:          0.71,
			RequiresHumanReview: false,
			Intent:              ticket.IntentTechnicalIssue,
			Priority:            ticket.PriorityHigh,
		}
		require.NoError(t, c.SetResult(ctx, want))
		defer c.Delete(ctx, want.TicketID)

		got, err := c.Result(ctx, want.TicketID)
		require.NoError(t, err)
		assert.Equal(t, want.DraftText, got.DraftText)
		assert.Equal(t, want.Intent, got.Intent)
		assert.InDelta(t, want.Confidence, got.Confidence, 1e-9)
	})

	t.Run("miss", func(t *testing.T) {
		_, err := c.Result(ctx, "TKT-NOTCACHED")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("rejects result without id", func(t *testing.T) {
		assert.ErrorIs(t, c.SetResult(ctx, &ticket.Result{}), errors.ErrInvalidInput)
	})
}
