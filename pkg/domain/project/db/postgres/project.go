package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	kpool "github.com/datasmith-io/datasmith/pkg/conn/db/postgres/pool"
	"github.com/datasmith-io/datasmith/pkg/domain"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	"github.com/datasmith-io/datasmith/pkg/domain/errors/dberrors"
	projdb "github.com/datasmith-io/datasmith/pkg/domain/project/db"
)

type projectPG struct { // implements projdb.ProjectInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *projectPG {
	return &projectPG{pool: pool}
}

var _ projdb.ProjectInterface = &projectPG{}

func (m *projectPG) New(ctx context.Context, orgId string, name string) (domain.Project, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback(ctx)

	p := domain.Project{OrgId: orgId, Name: name}
	if err := tx.QueryRow(
		ctx,
		`
		insert into "project" ("project_id", "org_id", "name")
		values ($1, $2, $3)
		returning "project_id", "created_at"
		`,
		uuid.NewString(), orgId, name,
	).Scan(&p.Id, &p.CreatedAt); err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.UniqueViolation {
				return domain.Project{}, kerr.ErrProjectNameTaken
			}
		}
		return domain.Project{}, err
	}

	// processing configuration starts with defaults at project creation.
	if _, err := tx.Exec(
		ctx,
		`insert into "processing_config" ("project_id") values ($1)`,
		p.Id,
	); err != nil {
		return domain.Project{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (m *projectPG) Get(ctx context.Context, orgId string, projectId string) (domain.Project, error) {
	p := domain.Project{}
	if err := m.pool.QueryRow(
		ctx,
		`
		select "project_id", "org_id", "name", "created_at", "deleted_at"
		from "project"
		where "project_id" = $1 and "org_id" = $2 and "deleted_at" is null
		`,
		projectId, orgId,
	).Scan(&p.Id, &p.OrgId, &p.Name, &p.CreatedAt, &p.DeletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, dberrors.Missing{
				Table: "project", Identity: "project_id = " + projectId,
			}
		}
		return domain.Project{}, err
	}
	return p, nil
}

func (m *projectPG) Find(ctx context.Context, orgId string) ([]domain.Project, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		select "project_id", "org_id", "name", "created_at", "deleted_at"
		from "project"
		where "org_id" = $1 and "deleted_at" is null
		order by "created_at" desc, "project_id"
		`,
		orgId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p := domain.Project{}
		if err := rows.Scan(&p.Id, &p.OrgId, &p.Name, &p.CreatedAt, &p.DeletedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (m *projectPG) Delete(ctx context.Context, orgId string, projectId string) error {
	cmd, err := m.pool.Exec(
		ctx,
		`
		update "project" set "deleted_at" = now()
		where "project_id" = $1 and "org_id" = $2 and "deleted_at" is null
		`,
		projectId, orgId,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return dberrors.Missing{
			Table: "project", Identity: "project_id = " + projectId,
		}
	}
	return nil
}
