package db

import (
	"context"
	"time"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// RunInterface is the persistence boundary of the run orchestrator.
//
// The run row is the single source of truth for pipeline state. Every
// status write is an atomic conditional update ("set status = X where
// status in (...)") so that a concurrent terminal transition is never
// clobbered.
type RunInterface interface {
	// New creates a Run for the project, in pending state with progress 0
	// and a frozen copy of the project's processing configuration.
	//
	// Preconditions, checked in this order inside one transaction:
	//
	//  1. the project exists, belongs to orgId, and is not soft-deleted
	//     -> else error wrapping kerr.ErrMissing.
	//  2. no run of the project is pending or running
	//     -> else kerr.ErrAlreadyActiveRun. The partial unique index
	//     "run_active_per_project" closes the race between two concurrent
	//     calls: its unique violation maps to the same error.
	//  3. at least one source of the project is ready
	//     -> else kerr.ErrNoReadySources.
	New(ctx context.Context, orgId string, projectId string) (domain.Run, error)

	// Get retrieves a run, tenant-scoped through its project.
	Get(ctx context.Context, orgId string, runId string) (domain.Run, error)

	// Find lists runs of a project, newest first, paginated.
	// The int return is the total count before paging.
	Find(ctx context.Context, orgId string, projectId string, page domain.Page) ([]domain.Run, int, error)

	// Cancel transitions a pending or running run to cancelled and sets its
	// completion timestamp, as one conditional update.
	//
	// Returns an error wrapping kerr.ErrMissing when the run does not exist
	// in the tenant, kerr.ErrInvalidRunStateChanging when it is terminal.
	Cancel(ctx context.Context, orgId string, runId string) error

	// Logs returns the run's pipeline log, in append order.
	Logs(ctx context.Context, orgId string, runId string) ([]domain.RunLog, error)

	// PickPending picks one pending run and transitions it to running,
	// recording its start time. Workers race via "for update skip locked";
	// ok is false when no pending run is available.
	//
	// Not tenant-scoped: workers serve all tenants.
	PickPending(ctx context.Context) (run domain.Run, ok bool, err error)

	// UpdateProgress persists pipeline progress, conditional on the run
	// still being in running state, and refreshes the heartbeat.
	// Progress never decreases: the write keeps max(current, progress).
	//
	// ok = false means the run left running state (cancelled); the pipeline
	// must stop advancing stages.
	UpdateProgress(ctx context.Context, runId string, progress int) (ok bool, err error)

	// AppendLog appends one line to the run's log.
	AppendLog(ctx context.Context, runId string, level domain.LogLevel, message string) error

	// FinishCompleted transitions running -> completed, forces progress to
	// 100, sets the completion timestamp and the final statistics, and
	// materializes the run's dataset from draft in the same transaction.
	// A completed run therefore always has its dataset, even across a
	// worker crash.
	//
	// ok = false when the run was no longer running (a cancel won the
	// race); no dataset is materialized then.
	FinishCompleted(ctx context.Context, runId string, stats domain.RunStats, draft domain.DatasetDraft) (ok bool, err error)

	// FinishFailed transitions running -> failed recording the error.
	// A lost race against cancel is not an error: the terminal cancel wins.
	FinishFailed(ctx context.Context, runId string, cause string, detail string) error

	// ReconcileStale fails every running run whose heartbeat is older than
	// olderThan. Returns the ids of runs it failed. Used for crash
	// recovery: a running run surviving a process restart must not be left
	// stuck.
	ReconcileStale(ctx context.Context, olderThan time.Duration) ([]string, error)
}
