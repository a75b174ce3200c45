package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/datasmith-io/datasmith/pkg/connector"
	"github.com/datasmith-io/datasmith/pkg/domain"
	srcdb "github.com/datasmith-io/datasmith/pkg/domain/source/db"
	"github.com/datasmith-io/datasmith/pkg/loop"
)

// Snapshots persists normalized records fetched from a source.
type Snapshots interface {
	WriteSnapshot(sourceId string, records []map[string]any) (path string, err error)
}

// Task synchronizes sources: each pass picks one syncing source, fetches
// its records through the matching connector, snapshots them and detects
// the field schema.
//
// CompleteSync is conditional on the source still being in syncing
// state, so a restarted sync or a deleted source voids this pass's
// outcome instead of clobbering it.
func Task(
	logger *log.Logger,
	dbSource srcdb.SourceInterface,
	fetchers map[domain.SourceType]connector.Fetcher,
	snapshots Snapshots,
	interval time.Duration,
) loop.Task[int] {
	return func(ctx context.Context, processed int) (int, loop.Next) {
		source, ok, err := dbSource.PickSyncing(ctx)
		if err != nil {
			logger.Printf("pick syncing source: %s", err)
			return processed, loop.Continue(interval)
		}
		if !ok {
			return processed, loop.Continue(interval)
		}

		logger.Printf("source %s: syncing (%s)", source.Id, source.Type)

		if err := sync(ctx, dbSource, fetchers, snapshots, source); err != nil {
			logger.Printf("source %s: %s", source.Id, err)
		} else {
			logger.Printf("source %s: synced", source.Id)
		}

		return processed + 1, loop.Continue(0)
	}
}

func sync(
	ctx context.Context,
	dbSource srcdb.SourceInterface,
	fetchers map[domain.SourceType]connector.Fetcher,
	snapshots Snapshots,
	source domain.Source,
) error {
	fetcher, ok := fetchers[source.Type]
	if !ok {
		return dbSource.CompleteSync(
			ctx, source.Id, 0, "", nil,
			fmt.Sprintf("no connector for source type %s", source.Type),
		)
	}

	records, err := fetcher.Fetch(ctx, source)
	if err != nil {
		return dbSource.CompleteSync(ctx, source.Id, 0, "", nil, err.Error())
	}

	path, err := snapshots.WriteSnapshot(source.Id, records)
	if err != nil {
		return dbSource.CompleteSync(ctx, source.Id, 0, "", nil, err.Error())
	}

	detected := connector.DetectFields(records)
	return dbSource.CompleteSync(ctx, source.Id, len(records), path, detected, "")
}
