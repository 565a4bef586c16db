package stream

import (
	"context"
	"errors"
	"testing"
)

func TestRouterDispatch(t *testing.T) {
	t.Run("deliversToRegisteredHandler", func(t *testing.T) {
		r := newRouter(nil)

		var got []byte
		r.on("order.created", func(ctx context.Context, data []byte) error {
			got = data
			return nil
		})

		r.dispatch(context.Background(), "order.created", []byte(`{"id":"o-1"}`))

		if string(got) != `{"id":"o-1"}` {
			t.Errorf("handler received %q", got)
		}
	})

	t.Run("unknownEventIsDropped", func(t *testing.T) {
		r := newRouter(nil)

		called := false
		r.on("order.created", func(ctx context.Context, data []byte) error {
			called = true
			return nil
		})

		r.dispatch(context.Background(), "order.deleted", []byte(`{}`))

		if called {
			t.Error("handler for a different event was invoked")
		}
	})

	t.Run("registeringAgainReplaces", func(t *testing.T) {
		r := newRouter(nil)

		first, second := 0, 0
		r.on("order.created", func(ctx context.Context, data []byte) error {
			first++
			return nil
		})
		r.on("order.created", func(ctx context.Context, data []byte) error {
			second++
			return nil
		})

		r.dispatch(context.Background(), "order.created", nil)

		if first != 0 || second != 1 {
			t.Errorf("first = %d, second = %d, want 0 and 1", first, second)
		}
	})

	t.Run("offRemovesHandler", func(t *testing.T) {
		r := newRouter(nil)

		called := false
		r.on("order.created", func(ctx context.Context, data []byte) error {
			called = true
			return nil
		})
		r.off("order.created")

		r.dispatch(context.Background(), "order.created", nil)

		if called {
			t.Error("handler invoked after off")
		}
	})
}

func TestRouterContainsFailures(t *testing.T) {
	t.Run("handlerError", func(t *testing.T) {
		r := newRouter(nil)
		r.on("order.created", func(ctx context.Context, data []byte) error {
			return errors.New("bad payload")
		})

		// Must not propagate or panic.
		r.dispatch(context.Background(), "order.created", []byte(`garbage`))
	})

	t.Run("handlerPanic", func(t *testing.T) {
		r := newRouter(nil)
		r.on("order.created", func(ctx context.Context, data []byte) error {
			panic("boom")
		})

		r.dispatch(context.Background(), "order.created", nil)
	})

	t.Run("laterEventsStillDelivered", func(t *testing.T) {
		r := newRouter(nil)

		r.on("order.created", func(ctx context.Context, data []byte) error {
			panic("boom")
		})
		delivered := false
		r.on("order.updated", func(ctx context.Context, data []byte) error {
			delivered = true
			return nil
		})

		r.dispatch(context.Background(), "order.created", nil)
		r.dispatch(context.Background(), "order.updated", nil)

		if !delivered {
			t.Error("a panicking handler blocked later dispatches")
		}
	})
}
