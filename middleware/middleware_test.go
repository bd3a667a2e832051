package middleware

import (
	"context"
	"errors"
	"testing"
)

type funcMiddleware struct {
	name string
	fn   func(*Context, Handler) error
}

func (m funcMiddleware) Name() string { return m.name }

func (m funcMiddleware) Execute(ctx *Context, next Handler) error { return m.fn(ctx, next) }

func recorder(name string, order *[]string, err error) Middleware {
	return funcMiddleware{name, func(ctx *Context, next Handler) error {
		*order = append(*order, name)
		if err != nil {
			return err
		}
		return next(ctx)
	}}
}

func TestMiddlewareChain(t *testing.T) {
	t.Run("empty chain executes final handler", func(t *testing.T) {
		executed := false
		err := NewChain().Execute(NewContext(context.Background(), "analyze"), func(*Context) error {
			executed = true
			return nil
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !executed {
			t.Error("final handler was not executed")
		}
	})

	t.Run("middleware chain executes in order", func(t *testing.T) {
		var order []string
		chain := NewChain(recorder("m1", &order, nil)).Add(recorder("m2", &order, nil))

		err := chain.Execute(NewContext(context.Background(), "draft"), func(*Context) error {
			order = append(order, "final")
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"m1", "m2", "final"}
		if len(order) != len(expected) {
			t.Fatalf("order = %v, want %v", order, expected)
		}
		for i := range expected {
			if order[i] != expected[i] {
				t.Errorf("step %d = %s, want %s", i, order[i], expected[i])
			}
		}
		if chain.Len() != 2 {
			t.Errorf("Len() = %d", chain.Len())
		}
	})

	t.Run("error stops chain and is recorded", func(t *testing.T) {
		var order []string
		boom := errors.New("boom")
		chain := NewChain(recorder("m1", &order, boom), recorder("m2", &order, nil))
		ctx := NewContext(context.Background(), "retrieve")

		finalCalled := false
		err := chain.Execute(ctx, func(*Context) error {
			finalCalled = true
			return nil
		})
		if !errors.Is(err, boom) {
			t.Errorf("Execute() error = %v", err)
		}
		if finalCalled || len(order) != 1 {
			t.Errorf("chain continued after error: %v", order)
		}
		if !errors.Is(ctx.Error, boom) {
			t.Errorf("ctx.Error = %v", ctx.Error)
		}
	})
}

func TestSetContext(t *testing.T) {
	type key struct{}
	ctx := NewContext(context.Background(), "analyze")
	chain := NewChain(funcMiddleware{"inject", func(c *Context, next Handler) error {
		c.SetContext(context.WithValue(c.Context(), key{}, "v"))
		return next(c)
	}})

	var got any
	_ = chain.Execute(ctx, func(c *Context) error {
		got = c.Context().Value(key{})
		return nil
	})
	if got != "v" {
		t.Errorf("value = %v, want v", got)
	}
}
