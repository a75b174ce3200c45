package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	kpool "github.com/datasmith-io/datasmith/pkg/conn/db/postgres/pool"
	"github.com/datasmith-io/datasmith/pkg/domain"
	"github.com/datasmith-io/datasmith/pkg/domain/errors/dberrors"
	dsdb "github.com/datasmith-io/datasmith/pkg/domain/dataset/db"
)

type datasetPG struct { // implements dsdb.DatasetInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *datasetPG {
	return &datasetPG{pool: pool}
}

var _ dsdb.DatasetInterface = &datasetPG{}

const datasetColumns = `
	"d"."dataset_id", "d"."run_id", "d"."name", "d"."format",
	"d"."file_path", "d"."file_size", "d"."record_count",
	"d"."conversation_count", "d"."avg_conversation_length",
	"d"."unique_speakers", "d"."created_at"
`

// datasets are tenant-scoped through their run's project.
const datasetJoinOrg = `
	from "dataset" as "d"
	inner join "processing_run" as "r" on "r"."run_id" = "d"."run_id"
	inner join "project" as "p"
		on "p"."project_id" = "r"."project_id"
		and "p"."org_id" = $2 and "p"."deleted_at" is null
`

func scanDataset(r pgx.Row) (domain.Dataset, error) {
	d := domain.Dataset{}
	var format string
	if err := r.Scan(
		&d.Id, &d.RunId, &d.Name, &format,
		&d.FilePath, &d.FileSize, &d.RecordCount,
		&d.Stats.Conversations, &d.Stats.AvgConversationLength,
		&d.Stats.UniqueSpeakers, &d.CreatedAt,
	); err != nil {
		return domain.Dataset{}, err
	}
	f, err := domain.AsOutputFormat(format)
	if err != nil {
		return domain.Dataset{}, err
	}
	d.Format = f
	return d, nil
}

func (m *datasetPG) Get(ctx context.Context, orgId string, datasetId string) (domain.Dataset, error) {
	d, err := scanDataset(m.pool.QueryRow(
		ctx,
		`select `+datasetColumns+datasetJoinOrg+` where "d"."dataset_id" = $1`,
		datasetId, orgId,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Dataset{}, dberrors.Missing{
				Table: "dataset", Identity: "dataset_id = " + datasetId,
			}
		}
		return domain.Dataset{}, err
	}
	return d, nil
}

func (m *datasetPG) GetByRun(ctx context.Context, orgId string, runId string) (domain.Dataset, error) {
	d, err := scanDataset(m.pool.QueryRow(
		ctx,
		`select `+datasetColumns+datasetJoinOrg+` where "d"."run_id" = $1`,
		runId, orgId,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Dataset{}, dberrors.Missing{
				Table: "dataset", Identity: "run_id = " + runId,
			}
		}
		return domain.Dataset{}, err
	}
	return d, nil
}

func (m *datasetPG) Find(ctx context.Context, orgId string, projectId string) ([]domain.Dataset, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		select `+datasetColumns+datasetJoinOrg+`
		where "r"."project_id" = $1
		order by "d"."created_at" desc, "d"."dataset_id"
		`,
		projectId, orgId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	datasets := []domain.Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}
