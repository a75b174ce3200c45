package reconcile_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/datasmith-io/datasmith/cmd/worker/tasks/reconcile"
	runmock "github.com/datasmith-io/datasmith/pkg/domain/run/db/mock"
	"github.com/datasmith-io/datasmith/pkg/loop"
	"github.com/datasmith-io/datasmith/pkg/utils/cmp"
)

func TestReconcileTask(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	t.Run("it fails stale runs and counts them up", func(t *testing.T) {
		mockRun := runmock.NewRunInterface()
		mockRun.Impl.ReconcileStale = func(_ context.Context, olderThan time.Duration) ([]string, error) {
			return []string{"run-1", "run-2"}, nil
		}

		testee := reconcile.Task(logger, mockRun, 30*time.Minute, time.Minute)

		reconciled, next := testee(context.Background(), 3)
		if reconciled != 5 {
			t.Errorf("unmatch: reconciled: %d != 5", reconciled)
		}
		if next != loop.Continue(time.Minute) {
			t.Errorf("unmatch: next: %s", next)
		}

		{
			actual := mockRun.Calls.ReconcileStale
			if !cmp.SliceEq(actual, []time.Duration{30 * time.Minute}) {
				t.Errorf("unmatch: query for RunInterface.ReconcileStale: %+v", actual)
			}
		}
	})

	t.Run("a broken pass keeps the loop running", func(t *testing.T) {
		mockRun := runmock.NewRunInterface()
		mockRun.Impl.ReconcileStale = func(context.Context, time.Duration) ([]string, error) {
			return nil, errors.New("fake error")
		}

		testee := reconcile.Task(logger, mockRun, 30*time.Minute, time.Minute)

		reconciled, next := testee(context.Background(), 3)
		if reconciled != 3 {
			t.Errorf("unmatch: reconciled: %d != 3", reconciled)
		}
		if next != loop.Continue(time.Minute) {
			t.Errorf("unmatch: next: %s", next)
		}
	})
}
