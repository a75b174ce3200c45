package reconcile

import (
	"context"
	"log"
	"time"

	rundb "github.com/datasmith-io/datasmith/pkg/domain/run/db"
	"github.com/datasmith-io/datasmith/pkg/loop"
)

// Task fails running runs whose heartbeat went stale. A run survives a
// worker crash in running state forever unless something settles it;
// this loop is that something.
func Task(
	logger *log.Logger,
	dbRun rundb.RunInterface,
	staleAfter time.Duration,
	interval time.Duration,
) loop.Task[int] {
	return func(ctx context.Context, reconciled int) (int, loop.Next) {
		failed, err := dbRun.ReconcileStale(ctx, staleAfter)
		if err != nil {
			logger.Printf("reconcile stale runs: %s", err)
			return reconciled, loop.Continue(interval)
		}

		for _, runId := range failed {
			logger.Printf("run %s: failed (heartbeat older than %s)", runId, staleAfter)
		}

		return reconciled + len(failed), loop.Continue(interval)
	}
}
