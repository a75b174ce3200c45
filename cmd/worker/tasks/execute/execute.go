package execute

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/datasmith-io/datasmith/pkg/domain"
	rundb "github.com/datasmith-io/datasmith/pkg/domain/run/db"
	srcdb "github.com/datasmith-io/datasmith/pkg/domain/source/db"
	"github.com/datasmith-io/datasmith/pkg/loop"
	"github.com/datasmith-io/datasmith/pkg/pipeline"
	"github.com/datasmith-io/datasmith/pkg/utils/slices"
)

// Task drives run pipelines: each pass picks one pending run, runs the
// stage chain over the project's ready sources and settles the run's
// terminal state.
//
// The dataset is materialized by FinishCompleted, in the same
// transaction as the completed transition, and only when that
// transition wins the race against cancel; an interrupted pipeline
// leaves the cancelled run as the API settled it.
func Task(
	logger *log.Logger,
	dbRun rundb.RunInterface,
	dbSource srcdb.SourceInterface,
	reader pipeline.SnapshotReader,
	writer pipeline.DatasetWriter,
	interval time.Duration,
) loop.Task[int] {
	return func(ctx context.Context, processed int) (int, loop.Next) {
		run, ok, err := dbRun.PickPending(ctx)
		if err != nil {
			logger.Printf("pick pending run: %s", err)
			return processed, loop.Continue(interval)
		}
		if !ok {
			return processed, loop.Continue(interval)
		}

		logger.Printf("run %s: picked (project %s)", run.Id, run.ProjectId)

		if err := execute(ctx, dbRun, dbSource, reader, writer, run); err != nil {
			logger.Printf("run %s: %s", run.Id, err)
		} else {
			logger.Printf("run %s: settled", run.Id)
		}

		// there may be more pending runs; go next without cooling down.
		return processed + 1, loop.Continue(0)
	}
}

func execute(
	ctx context.Context,
	dbRun rundb.RunInterface,
	dbSource srcdb.SourceInterface,
	reader pipeline.SnapshotReader,
	writer pipeline.DatasetWriter,
	run domain.Run,
) error {
	bundles, err := dbSource.ReadyBundles(ctx, run.ProjectId)
	if err != nil {
		return fail(ctx, dbRun, run.Id, "cannot load sources", err)
	}

	ws := &pipeline.Workspace{
		RunId:  run.Id,
		Config: run.Config,
		Inputs: slices.Map(bundles, func(b srcdb.Bundle) pipeline.Input {
			return pipeline.Input{
				SourceId:     b.Source.Id,
				SourceName:   b.Source.Name,
				SnapshotPath: b.Source.SnapshotPath,
				Mapping:      b.Mapping.Mapping,
				Deident:      b.Deident,
			}
		}),
		Log: func(level domain.LogLevel, message string) {
			// log writes are advisory; a failed write must not stop the run.
			_ = dbRun.AppendLog(ctx, run.Id, level, message)
		},
	}

	err = pipeline.Drive(
		ctx,
		pipeline.DefaultStages(reader, dbSource, writer),
		ws,
		func(ctx context.Context, percent int) (bool, error) {
			return dbRun.UpdateProgress(ctx, run.Id, percent)
		},
	)

	switch {
	case err == nil:
		_, err := dbRun.FinishCompleted(ctx, run.Id, ws.Stats, domain.DatasetDraft{
			Name:        datasetName(run),
			Format:      run.Config.Format,
			FilePath:    ws.Output.Path,
			FileSize:    ws.Output.Size,
			RecordCount: ws.Output.RecordCount,
			Stats:       ws.Output.Stats,
		})
		return err

	case errors.Is(err, pipeline.ErrInterrupted):
		// run left the running state under our feet: cancelled from the
		// API or reconciled. The terminal state is already settled.
		return nil

	case ctx.Err() != nil:
		// pass timeout or shutdown; the reconciler will fail the run
		// once its heartbeat goes stale.
		return err

	default:
		return fail(ctx, dbRun, run.Id, "pipeline failed", err)
	}
}

func fail(ctx context.Context, dbRun rundb.RunInterface, runId string, cause string, err error) error {
	if ferr := dbRun.FinishFailed(ctx, runId, cause, err.Error()); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

func datasetName(run domain.Run) string {
	id := run.Id
	if 8 < len(id) {
		id = id[:8]
	}
	return "dataset-" + id
}
