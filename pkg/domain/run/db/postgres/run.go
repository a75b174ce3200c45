package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	kpool "github.com/datasmith-io/datasmith/pkg/conn/db/postgres/pool"
	"github.com/datasmith-io/datasmith/pkg/domain"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	"github.com/datasmith-io/datasmith/pkg/domain/errors/dberrors"
	rundb "github.com/datasmith-io/datasmith/pkg/domain/run/db"
)

// a struct for DB operations related to Run
type runPG struct { // implements rundb.RunInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *runPG {
	return &runPG{pool: pool}
}

var _ rundb.RunInterface = &runPG{}

const runColumns = `
	"run_id", "project_id", "status", "progress",
	"started_at", "finished_at", "error", "error_detail",
	"format", "include_metadata", "chunk_size", "min_length", "max_length",
	"total_records", "processed_records", "pii_detected", "pii_masked",
	"created_at", "updated_at"
`

func scanRun(row pgx.Row) (domain.Run, error) {
	r := domain.Run{}
	var (
		status string
		format string

		totalRecords, processedRecords, piiDetected, piiMasked *int
	)
	if err := row.Scan(
		&r.Id, &r.ProjectId, &status, &r.Progress,
		&r.StartedAt, &r.FinishedAt, &r.Error, &r.ErrorDetail,
		&format, &r.Config.IncludeMetadata, &r.Config.ChunkSize,
		&r.Config.MinLength, &r.Config.MaxLength,
		&totalRecords, &processedRecords, &piiDetected, &piiMasked,
		&r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return domain.Run{}, err
	}

	s, err := domain.AsRunStatus(status)
	if err != nil {
		return domain.Run{}, err
	}
	r.Status = s

	f, err := domain.AsOutputFormat(format)
	if err != nil {
		return domain.Run{}, err
	}
	r.Config.Format = f

	if totalRecords != nil {
		r.Stats = &domain.RunStats{
			TotalRecords:     *totalRecords,
			ProcessedRecords: derefOrZero(processedRecords),
			PIIDetected:      derefOrZero(piiDetected),
			PIIMasked:        derefOrZero(piiMasked),
		}
	}
	return r, nil
}

func derefOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func (m *runPG) New(ctx context.Context, orgId string, projectId string) (domain.Run, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Run{}, err
	}
	defer tx.Rollback(ctx)

	// precondition 1: the project exists in the tenant and is live.
	var found string
	if err := tx.QueryRow(
		ctx,
		`
		select "project_id" from "project"
		where "project_id" = $1 and "org_id" = $2 and "deleted_at" is null
		`,
		projectId, orgId,
	).Scan(&found); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Run{}, dberrors.Missing{
				Table: "project", Identity: "project_id = " + projectId,
			}
		}
		return domain.Run{}, err
	}

	// precondition 2: no active run. The partial unique index
	// "run_active_per_project" is the authoritative guard; this check only
	// yields the distinct error ahead of the insert.
	var actives int
	if err := tx.QueryRow(
		ctx,
		`
		select count(*) from "processing_run"
		where "project_id" = $1 and "status" in ('pending', 'running')
		`,
		projectId,
	).Scan(&actives); err != nil {
		return domain.Run{}, err
	}
	if 0 < actives {
		return domain.Run{}, kerr.ErrAlreadyActiveRun
	}

	// precondition 3: at least one ready source.
	var ready int
	if err := tx.QueryRow(
		ctx,
		`select count(*) from "source" where "project_id" = $1 and "status" = 'ready'`,
		projectId,
	).Scan(&ready); err != nil {
		return domain.Run{}, err
	}
	if ready == 0 {
		return domain.Run{}, kerr.ErrNoReadySources
	}

	// snapshot the processing configuration, defaulting when absent.
	conf := domain.DefaultProcessingConfig()
	{
		var format string
		err := tx.QueryRow(
			ctx,
			`
			select "format", "include_metadata", "chunk_size", "min_length", "max_length"
			from "processing_config" where "project_id" = $1
			`,
			projectId,
		).Scan(
			&format, &conf.IncludeMetadata, &conf.ChunkSize,
			&conf.MinLength, &conf.MaxLength,
		)
		if err == nil {
			f, err := domain.AsOutputFormat(format)
			if err != nil {
				return domain.Run{}, err
			}
			conf.Format = f
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return domain.Run{}, err
		}
	}

	run, err := scanRun(tx.QueryRow(
		ctx,
		`
		insert into "processing_run" (
			"run_id", "project_id", "status", "progress",
			"format", "include_metadata", "chunk_size", "min_length", "max_length"
		)
		values ($1, $2, 'pending', 0, $3, $4, $5, $6, $7)
		returning `+runColumns,
		uuid.NewString(), projectId,
		string(conf.Format), conf.IncludeMetadata, conf.ChunkSize,
		conf.MinLength, conf.MaxLength,
	))
	if err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.UniqueViolation {
				// another create-run won the race since the pre-check.
				return domain.Run{}, kerr.ErrAlreadyActiveRun
			}
		}
		return domain.Run{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

func (m *runPG) Get(ctx context.Context, orgId string, runId string) (domain.Run, error) {
	run, err := scanRun(m.pool.QueryRow(
		ctx,
		`
		select `+runColumns+`
		from "processing_run"
		inner join "project" using ("project_id")
		where "run_id" = $1 and "org_id" = $2 and "deleted_at" is null
		`,
		runId, orgId,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Run{}, dberrors.Missing{
				Table: "processing_run", Identity: "run_id = " + runId,
			}
		}
		return domain.Run{}, err
	}
	return run, nil
}

func (m *runPG) Find(
	ctx context.Context, orgId string, projectId string, page domain.Page,
) ([]domain.Run, int, error) {
	page = page.Normalize()

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Release()

	var found string
	if err := conn.QueryRow(
		ctx,
		`
		select "project_id" from "project"
		where "project_id" = $1 and "org_id" = $2 and "deleted_at" is null
		`,
		projectId, orgId,
	).Scan(&found); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, dberrors.Missing{
				Table: "project", Identity: "project_id = " + projectId,
			}
		}
		return nil, 0, err
	}

	var total int
	if err := conn.QueryRow(
		ctx,
		`select count(*) from "processing_run" where "project_id" = $1`,
		projectId,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(
		ctx,
		`
		select `+runColumns+`
		from "processing_run"
		where "project_id" = $1
		order by "created_at" desc, "run_id"
		limit $2 offset $3
		`,
		projectId, page.PageSize, page.Offset(),
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runs := []domain.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (m *runPG) Cancel(ctx context.Context, orgId string, runId string) error {
	cmd, err := m.pool.Exec(
		ctx,
		`
		update "processing_run" set
			"status" = 'cancelled',
			"finished_at" = now(),
			"updated_at" = now()
		where "run_id" = $1
		  and "status" in ('pending', 'running')
		  and "project_id" in (
			select "project_id" from "project"
			where "org_id" = $2 and "deleted_at" is null
		  )
		`,
		runId, orgId,
	)
	if err != nil {
		return err
	}
	if 0 < cmd.RowsAffected() {
		return nil
	}

	// nothing updated: distinguish missing from not-cancellable.
	var status string
	if err := m.pool.QueryRow(
		ctx,
		`
		select "status"
		from "processing_run"
		inner join "project" using ("project_id")
		where "run_id" = $1 and "org_id" = $2 and "deleted_at" is null
		`,
		runId, orgId,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dberrors.Missing{
				Table: "processing_run", Identity: "run_id = " + runId,
			}
		}
		return err
	}
	current, err := domain.AsRunStatus(status)
	if err != nil {
		return err
	}
	return kerr.NewErrInvalidRunStateChanging(current, domain.RunCancelled)
}

func (m *runPG) Logs(ctx context.Context, orgId string, runId string) ([]domain.RunLog, error) {
	// tenancy check piggybacks on Get.
	if _, err := m.Get(ctx, orgId, runId); err != nil {
		return nil, err
	}

	rows, err := m.pool.Query(
		ctx,
		`
		select "at", "level", "message" from "run_log"
		where "run_id" = $1
		order by "id"
		`,
		runId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []domain.RunLog{}
	for rows.Next() {
		l := domain.RunLog{}
		var level string
		if err := rows.Scan(&l.At, &level, &l.Message); err != nil {
			return nil, err
		}
		lv, err := domain.AsLogLevel(level)
		if err != nil {
			return nil, err
		}
		l.Level = lv
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (m *runPG) PickPending(ctx context.Context) (domain.Run, bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Run{}, false, err
	}
	defer tx.Rollback(ctx)

	var runId string
	if err := tx.QueryRow(
		ctx,
		`
		select "run_id" from "processing_run"
		where "status" = 'pending'
		order by "created_at"
		limit 1
		for update skip locked
		`,
	).Scan(&runId); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Run{}, false, nil
		}
		return domain.Run{}, false, err
	}

	run, err := scanRun(tx.QueryRow(
		ctx,
		`
		update "processing_run" set
			"status" = 'running',
			"started_at" = now(),
			"updated_at" = now()
		where "run_id" = $1 and "status" = 'pending'
		returning `+runColumns,
		runId,
	))
	if err != nil {
		return domain.Run{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Run{}, false, err
	}
	return run, true, nil
}

func (m *runPG) UpdateProgress(ctx context.Context, runId string, progress int) (bool, error) {
	cmd, err := m.pool.Exec(
		ctx,
		`
		update "processing_run" set
			"progress" = greatest("progress", $2),
			"updated_at" = now()
		where "run_id" = $1 and "status" = 'running'
		`,
		runId, progress,
	)
	if err != nil {
		return false, err
	}
	return 0 < cmd.RowsAffected(), nil
}

func (m *runPG) AppendLog(ctx context.Context, runId string, level domain.LogLevel, message string) error {
	_, err := m.pool.Exec(
		ctx,
		`insert into "run_log" ("run_id", "level", "message") values ($1, $2, $3)`,
		runId, string(level), message,
	)
	return err
}

func (m *runPG) FinishCompleted(ctx context.Context, runId string, stats domain.RunStats, draft domain.DatasetDraft) (bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(
		ctx,
		`
		update "processing_run" set
			"status" = 'completed',
			"progress" = 100,
			"finished_at" = now(),
			"updated_at" = now(),
			"total_records" = $2,
			"processed_records" = $3,
			"pii_detected" = $4,
			"pii_masked" = $5
		where "run_id" = $1 and "status" = 'running'
		`,
		runId,
		stats.TotalRecords, stats.ProcessedRecords,
		stats.PIIDetected, stats.PIIMasked,
	)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		// cancel (or the reconciler) won the race; no dataset.
		return false, nil
	}

	// in the same transaction: the completed status and the dataset land
	// together, or not at all. "run_id" is unique, so a replayed
	// completion cannot attach a second dataset.
	if _, err := tx.Exec(
		ctx,
		`
		insert into "dataset" (
			"dataset_id", "run_id", "name", "format",
			"file_path", "file_size", "record_count",
			"conversation_count", "avg_conversation_length", "unique_speakers"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		on conflict ("run_id") do nothing
		`,
		uuid.NewString(), runId, draft.Name, string(draft.Format),
		draft.FilePath, draft.FileSize, draft.RecordCount,
		draft.Stats.Conversations, draft.Stats.AvgConversationLength, draft.Stats.UniqueSpeakers,
	); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (m *runPG) FinishFailed(ctx context.Context, runId string, cause string, detail string) error {
	_, err := m.pool.Exec(
		ctx,
		`
		update "processing_run" set
			"status" = 'failed',
			"error" = $2,
			"error_detail" = $3,
			"finished_at" = now(),
			"updated_at" = now()
		where "run_id" = $1 and "status" = 'running'
		`,
		runId, cause, detail,
	)
	return err
}

func (m *runPG) ReconcileStale(ctx context.Context, olderThan time.Duration) ([]string, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		update "processing_run" set
			"status" = 'failed',
			"error" = 'interrupted',
			"error_detail" = 'the worker driving this run stopped reporting progress',
			"finished_at" = now(),
			"updated_at" = now()
		where "status" = 'running' and "updated_at" < now() - $1
		returning "run_id"
		`,
		olderThan,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runIds := []string{}
	for rows.Next() {
		var runId string
		if err := rows.Scan(&runId); err != nil {
			return nil, err
		}
		runIds = append(runIds, runId)
	}
	return runIds, rows.Err()
}
