package loop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datasmith-io/datasmith/pkg/loop"
)

func TestStart(t *testing.T) {
	ctx := context.Background()

	t.Run("it threads the value through passes until Break", func(t *testing.T) {
		total, err := loop.Start(ctx, 0, func(ctx context.Context, value int) (int, loop.Next) {
			value += 1
			if 10 <= value {
				return value, loop.Break(nil)
			}
			return value, loop.Continue(0)
		})
		if err != nil {
			t.Fatal(err)
		}
		if total != 10 {
			t.Errorf("unexpected value: %d", total)
		}
	})

	t.Run("Break(err) surfaces the error with the last value", func(t *testing.T) {
		fakeErr := errors.New("fake error")
		value, err := loop.Start(ctx, "initial", func(ctx context.Context, v string) (string, loop.Next) {
			return "last", loop.Break(fakeErr)
		})
		if !errors.Is(err, fakeErr) {
			t.Errorf("unexpected error: %v", err)
		}
		if value != "last" {
			t.Errorf("unexpected value: %s", value)
		}
	})

	t.Run("a done context stops the loop before the next pass", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)

		passes := 0
		_, err := loop.Start(cctx, 0, func(ctx context.Context, v int) (int, loop.Next) {
			passes += 1
			cancel()
			return v, loop.Continue(time.Hour)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if passes != 1 {
			t.Errorf("loop kept going: %d passes", passes)
		}
	})

	t.Run("an already-done context never runs the task", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		passes := 0
		_, err := loop.Start(cctx, 0, func(ctx context.Context, v int) (int, loop.Next) {
			passes += 1
			return v, loop.Break(nil)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if passes != 0 {
			t.Errorf("task ran %d times", passes)
		}
	})

	t.Run("WithTimeout bounds each pass's context", func(t *testing.T) {
		_, err := loop.Start(ctx, 0, func(ctx context.Context, v int) (int, loop.Next) {
			select {
			case <-ctx.Done():
				return v, loop.Break(ctx.Err())
			case <-time.After(3 * time.Second):
				return v, loop.Break(errors.New("pass context not bounded"))
			}
		}, loop.WithTimeout(10*time.Millisecond))

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
