package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	kpool "github.com/datasmith-io/datasmith/pkg/conn/db/postgres/pool"
	"github.com/datasmith-io/datasmith/pkg/domain"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	"github.com/datasmith-io/datasmith/pkg/domain/errors/dberrors"
	srcdb "github.com/datasmith-io/datasmith/pkg/domain/source/db"
)

type sourcePG struct { // implements srcdb.SourceInterface
	pool kpool.Pool
}

func New(pool kpool.Pool) *sourcePG {
	return &sourcePG{pool: pool}
}

var _ srcdb.SourceInterface = &sourcePG{}

const sourceColumns = `
	"s"."source_id", "s"."project_id", "s"."name", "s"."type", "s"."status",
	"s"."record_count", "s"."error",
	"s"."file_path", "s"."file_size", "s"."content_type",
	"s"."domain", "s"."credential", "s"."data_types",
	"s"."snapshot_path", "s"."created_at", "s"."updated_at"
`

// tenant-scoped source lookup: the source exists for orgId only when
// its project is live and owned by the organization.
const sourceByOrg = `
	from "source" as "s"
	inner join "project" as "p"
		on "p"."project_id" = "s"."project_id"
		and "p"."org_id" = $2 and "p"."deleted_at" is null
	where "s"."source_id" = $1
`

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

func scanSource(r pgx.Row) (domain.Source, error) {
	s := domain.Source{}
	var typ, status string
	var filePath, contentType, connDomain *string
	var fileSize *int64
	var credential []byte
	var dataTypes []string

	if err := r.Scan(
		&s.Id, &s.ProjectId, &s.Name, &typ, &status,
		&s.RecordCount, &s.Error,
		&filePath, &fileSize, &contentType,
		&connDomain, &credential, &dataTypes,
		&s.SnapshotPath, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return domain.Source{}, err
	}

	t, err := domain.AsSourceType(typ)
	if err != nil {
		return domain.Source{}, err
	}
	s.Type = t
	st, err := domain.AsSourceStatus(status)
	if err != nil {
		return domain.Source{}, err
	}
	s.Status = st

	switch s.Type {
	case domain.SourceFile:
		f := domain.FileSpec{}
		if filePath != nil {
			f.Path = *filePath
		}
		if fileSize != nil {
			f.Size = *fileSize
		}
		if contentType != nil {
			f.ContentType = *contentType
		}
		s.File = &f
	default:
		c := domain.ConnectorSpec{Credential: credential, DataTypes: dataTypes}
		if connDomain != nil {
			c.Domain = *connDomain
		}
		s.Connector = &c
	}
	return s, nil
}

func (m *sourcePG) New(ctx context.Context, orgId string, projectId string, spec srcdb.SourceSpec) (domain.Source, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Source{}, err
	}
	defer tx.Rollback(ctx)

	if err := projectExists(ctx, tx, orgId, projectId); err != nil {
		return domain.Source{}, err
	}

	var filePath, contentType, connDomain *string
	var fileSize *int64
	var credential []byte
	var dataTypes []string
	switch spec.Type {
	case domain.SourceFile:
		if spec.File == nil {
			return domain.Source{}, errors.New("file source without file spec")
		}
		filePath, fileSize, contentType = &spec.File.Path, &spec.File.Size, &spec.File.ContentType
	default:
		if spec.Connector == nil {
			return domain.Source{}, errors.New("connector source without connector spec")
		}
		connDomain = &spec.Connector.Domain
		credential = spec.Connector.Credential
		dataTypes = spec.Connector.DataTypes
	}

	sourceId := uuid.NewString()
	if _, err := tx.Exec(
		ctx,
		`
		insert into "source" (
			"source_id", "project_id", "name", "type",
			"file_path", "file_size", "content_type",
			"domain", "credential", "data_types"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
		sourceId, projectId, spec.Name, string(spec.Type),
		filePath, fileSize, contentType,
		connDomain, credential, dataTypes,
	); err != nil {
		return domain.Source{}, err
	}

	// configuration rows exist from birth, so reads and wholesale
	// replaces never need an upsert.
	if _, err := tx.Exec(
		ctx, `insert into "schema_mapping" ("source_id") values ($1)`, sourceId,
	); err != nil {
		return domain.Source{}, err
	}
	if _, err := tx.Exec(
		ctx, `insert into "deidentification_config" ("source_id") values ($1)`, sourceId,
	); err != nil {
		return domain.Source{}, err
	}

	s, err := scanSource(tx.QueryRow(
		ctx,
		`select `+sourceColumns+` from "source" as "s" where "s"."source_id" = $1`,
		sourceId,
	))
	if err != nil {
		return domain.Source{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Source{}, err
	}
	return s, nil
}

func (m *sourcePG) Get(ctx context.Context, orgId string, sourceId string) (domain.Source, error) {
	s, err := scanSource(m.pool.QueryRow(
		ctx, `select `+sourceColumns+sourceByOrg, sourceId, orgId,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Source{}, dberrors.Missing{
				Table: "source", Identity: "source_id = " + sourceId,
			}
		}
		return domain.Source{}, err
	}
	return s, nil
}

func (m *sourcePG) Find(ctx context.Context, orgId string, projectId string) ([]domain.Source, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if err := projectExists(ctx, conn, orgId, projectId); err != nil {
		return nil, err
	}

	rows, err := conn.Query(
		ctx,
		`
		select `+sourceColumns+`
		from "source" as "s"
		where "s"."project_id" = $1
		order by "s"."created_at" desc, "s"."source_id"
		`,
		projectId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := []domain.Source{}
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (m *sourcePG) Delete(ctx context.Context, orgId string, sourceId string) error {
	cmd, err := m.pool.Exec(
		ctx,
		`
		delete from "source"
		where "source_id" in (select "s"."source_id" `+sourceByOrg+`)
		`,
		sourceId, orgId,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return dberrors.Missing{
			Table: "source", Identity: "source_id = " + sourceId,
		}
	}
	return nil
}

func (m *sourcePG) RequestSync(ctx context.Context, orgId string, sourceId string) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	cmd, err := conn.Exec(
		ctx,
		`
		update "source" set
			"status" = 'syncing', "error" = '', "updated_at" = now()
		where "source_id" in (select "s"."source_id" `+sourceByOrg+`)
		`,
		sourceId, orgId,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return dberrors.Missing{
			Table: "source", Identity: "source_id = " + sourceId,
		}
	}
	return nil
}

func (m *sourcePG) PickSyncing(ctx context.Context) (domain.Source, bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Source{}, false, err
	}
	defer tx.Rollback(ctx)

	s, err := scanSource(tx.QueryRow(
		ctx,
		`
		select `+sourceColumns+`
		from "source" as "s"
		where "s"."status" = 'syncing'
		order by "s"."updated_at"
		limit 1
		for update skip locked
		`,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Source{}, false, nil
		}
		return domain.Source{}, false, err
	}

	// bump the heartbeat so concurrent pickers prefer other sources
	// when this worker's fetch is slow.
	if _, err := tx.Exec(
		ctx,
		`update "source" set "updated_at" = now() where "source_id" = $1`,
		s.Id,
	); err != nil {
		return domain.Source{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Source{}, false, err
	}
	return s, true, nil
}

func (m *sourcePG) CompleteSync(ctx context.Context, sourceId string, recordCount int, snapshotPath string, detected map[string]string, syncErr string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var cmd pgconn.CommandTag
	if syncErr != "" {
		cmd, err = tx.Exec(
			ctx,
			`
			update "source" set
				"status" = 'error', "error" = $2, "updated_at" = now()
			where "source_id" = $1 and "status" = 'syncing'
			`,
			sourceId, syncErr,
		)
	} else {
		cmd, err = tx.Exec(
			ctx,
			`
			update "source" set
				"status" = 'ready', "error" = '',
				"record_count" = $2, "snapshot_path" = $3,
				"updated_at" = now()
			where "source_id" = $1 and "status" = 'syncing'
			`,
			sourceId, recordCount, snapshotPath,
		)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// restarted or deleted while fetching; this completion is void.
		return fmt.Errorf(
			"%w: no syncing source: source_id = %s",
			kerr.ErrInvalidSourceStateChanging, sourceId,
		)
	}

	if syncErr == "" && detected != nil {
		b, err := json.Marshal(detected)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			ctx,
			`update "schema_mapping" set "detected" = $2 where "source_id" = $1`,
			sourceId, b,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (m *sourcePG) sourceVisible(ctx context.Context, q kpool.Queryer, orgId, sourceId string) error {
	var found string
	if err := q.QueryRow(
		ctx, `select "s"."source_id" `+sourceByOrg, sourceId, orgId,
	).Scan(&found); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dberrors.Missing{
				Table: "source", Identity: "source_id = " + sourceId,
			}
		}
		return err
	}
	return nil
}

func (m *sourcePG) Schema(ctx context.Context, orgId string, sourceId string) (domain.SchemaMapping, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.SchemaMapping{}, err
	}
	defer conn.Release()

	if err := m.sourceVisible(ctx, conn, orgId, sourceId); err != nil {
		return domain.SchemaMapping{}, err
	}

	var mapping, detected []byte
	if err := conn.QueryRow(
		ctx,
		`select "mapping", "detected" from "schema_mapping" where "source_id" = $1`,
		sourceId,
	).Scan(&mapping, &detected); err != nil {
		return domain.SchemaMapping{}, err
	}

	sm := domain.SchemaMapping{}
	if err := json.Unmarshal(mapping, &sm.Mapping); err != nil {
		return domain.SchemaMapping{}, err
	}
	if err := json.Unmarshal(detected, &sm.Detected); err != nil {
		return domain.SchemaMapping{}, err
	}
	return sm, nil
}

func (m *sourcePG) PutSchema(ctx context.Context, orgId string, sourceId string, mapping map[string]string) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := m.sourceVisible(ctx, conn, orgId, sourceId); err != nil {
		return err
	}

	b, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	_, err = conn.Exec(
		ctx,
		`update "schema_mapping" set "mapping" = $2 where "source_id" = $1`,
		sourceId, b,
	)
	return err
}

func (m *sourcePG) Deident(ctx context.Context, orgId string, sourceId string) (domain.DeidentConfig, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return domain.DeidentConfig{}, err
	}
	defer conn.Release()

	if err := m.sourceVisible(ctx, conn, orgId, sourceId); err != nil {
		return domain.DeidentConfig{}, err
	}
	return deidentOf(ctx, conn, sourceId)
}

func deidentOf(ctx context.Context, q kpool.Queryer, sourceId string) (domain.DeidentConfig, error) {
	conf := domain.DeidentConfig{}
	var rules, detectors, report []byte
	if err := q.QueryRow(
		ctx,
		`
		select "enabled", "rules", "detectors", "report"
		from "deidentification_config" where "source_id" = $1
		`,
		sourceId,
	).Scan(&conf.Enabled, &rules, &detectors, &report); err != nil {
		return domain.DeidentConfig{}, err
	}
	if err := json.Unmarshal(rules, &conf.Rules); err != nil {
		return domain.DeidentConfig{}, err
	}
	if err := json.Unmarshal(detectors, &conf.Detectors); err != nil {
		return domain.DeidentConfig{}, err
	}
	if err := json.Unmarshal(report, &conf.Report); err != nil {
		return domain.DeidentConfig{}, err
	}
	return conf, nil
}

func (m *sourcePG) PutDeident(ctx context.Context, orgId string, sourceId string, conf domain.DeidentConfig) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := m.sourceVisible(ctx, conn, orgId, sourceId); err != nil {
		return err
	}

	rules, err := json.Marshal(orEmptyRules(conf.Rules))
	if err != nil {
		return err
	}
	detectors, err := json.Marshal(orEmptyDetectors(conf.Detectors))
	if err != nil {
		return err
	}
	_, err = conn.Exec(
		ctx,
		`
		update "deidentification_config" set
			"enabled" = $2, "rules" = $3, "detectors" = $4
		where "source_id" = $1
		`,
		sourceId, conf.Enabled, rules, detectors,
	)
	return err
}

func (m *sourcePG) PutReport(ctx context.Context, sourceId string, report []domain.PIIFinding) error {
	if report == nil {
		report = []domain.PIIFinding{}
	}
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = m.pool.Exec(
		ctx,
		`update "deidentification_config" set "report" = $2 where "source_id" = $1`,
		sourceId, b,
	)
	return err
}

func (m *sourcePG) ReadyBundles(ctx context.Context, projectId string) ([]srcdb.Bundle, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select `+sourceColumns+`
		from "source" as "s"
		where "s"."project_id" = $1 and "s"."status" = 'ready'
		order by "s"."created_at", "s"."source_id"
		`,
		projectId,
	)
	if err != nil {
		return nil, err
	}

	sources := []domain.Source{}
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sources = append(sources, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bundles := []srcdb.Bundle{}
	for _, s := range sources {
		var mapping, detected []byte
		sm := domain.SchemaMapping{}
		if err := conn.QueryRow(
			ctx,
			`select "mapping", "detected" from "schema_mapping" where "source_id" = $1`,
			s.Id,
		).Scan(&mapping, &detected); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(mapping, &sm.Mapping); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detected, &sm.Detected); err != nil {
			return nil, err
		}

		dc, err := deidentOf(ctx, conn, s.Id)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, srcdb.Bundle{Source: s, Mapping: sm, Deident: dc})
	}
	return bundles, nil
}

func orEmptyRules(rs []domain.DeidentRule) []domain.DeidentRule {
	if rs == nil {
		return []domain.DeidentRule{}
	}
	return rs
}

func orEmptyDetectors(ds []domain.CustomDetector) []domain.CustomDetector {
	if ds == nil {
		return []domain.CustomDetector{}
	}
	return ds
}
