package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	kpool "github.com/datasmith-io/datasmith/pkg/conn/db/postgres/pool"
	"github.com/datasmith-io/datasmith/pkg/domain"
	"github.com/datasmith-io/datasmith/pkg/domain/errors/dberrors"
	procdb "github.com/datasmith-io/datasmith/pkg/domain/processing/db"
)

type processingPG struct { // implements procdb.ProcessingInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *processingPG {
	return &processingPG{pool: pool}
}

var _ procdb.ProcessingInterface = &processingPG{}

func projectExists(ctx context.Context, q kpool.Queryer, orgId, projectId string) error {
	var found string
	if err := q.QueryRow(
		ctx,
		`
		select "project_id" from "project"
		where "project_id" = $1 and "org_id" = $2 and "deleted_at" is null
		`,
		projectId, orgId,
	).Scan(&found); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dberrors.Missing{
				Table: "project", Identity: "project_id = " + projectId,
			}
		}
		return err
	}
	return nil
}

func (m *processingPG) Get(ctx context.Context, orgId string, projectId string) (domain.ProcessingConfig, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.ProcessingConfig{}, err
	}
	defer conn.Release()

	if err := projectExists(ctx, conn, orgId, projectId); err != nil {
		return domain.ProcessingConfig{}, err
	}

	conf := domain.DefaultProcessingConfig()
	var format string
	err = conn.QueryRow(
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
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return conf, nil // pre-migration project; defaults apply.
		}
		return domain.ProcessingConfig{}, err
	}

	f, err := domain.AsOutputFormat(format)
	if err != nil {
		return domain.ProcessingConfig{}, err
	}
	conf.Format = f
	return conf, nil
}

func (m *processingPG) Put(ctx context.Context, orgId string, projectId string, conf domain.ProcessingConfig) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := projectExists(ctx, conn, orgId, projectId); err != nil {
		return err
	}

	_, err = conn.Exec(
		ctx,
		`
		insert into "processing_config" (
			"project_id", "format", "include_metadata",
			"chunk_size", "min_length", "max_length"
		)
		values ($1, $2, $3, $4, $5, $6)
		on conflict ("project_id") do update set
			"format" = excluded."format",
			"include_metadata" = excluded."include_metadata",
			"chunk_size" = excluded."chunk_size",
			"min_length" = excluded."min_length",
			"max_length" = excluded."max_length"
		`,
		projectId, string(conf.Format), conf.IncludeMetadata,
		conf.ChunkSize, conf.MinLength, conf.MaxLength,
	)
	return err
}
