package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	kpool "github.com/datasmith-io/datasmith/pkg/conn/db/postgres/pool"
	kdb "github.com/datasmith-io/datasmith/pkg/db"
	kpgschema "github.com/datasmith-io/datasmith/pkg/db/postgres/schema"
	dsdb "github.com/datasmith-io/datasmith/pkg/domain/dataset/db"
	dspg "github.com/datasmith-io/datasmith/pkg/domain/dataset/db/postgres"
	procdb "github.com/datasmith-io/datasmith/pkg/domain/processing/db"
	procpg "github.com/datasmith-io/datasmith/pkg/domain/processing/db/postgres"
	projdb "github.com/datasmith-io/datasmith/pkg/domain/project/db"
	projpg "github.com/datasmith-io/datasmith/pkg/domain/project/db/postgres"
	rundb "github.com/datasmith-io/datasmith/pkg/domain/run/db"
	runpg "github.com/datasmith-io/datasmith/pkg/domain/run/db/postgres"
	srcdb "github.com/datasmith-io/datasmith/pkg/domain/source/db"
	srcpg "github.com/datasmith-io/datasmith/pkg/domain/source/db/postgres"
)

type dsDBPostgres struct {
	pool       *pgxpool.Pool
	projects   projdb.ProjectInterface
	sources    srcdb.SourceInterface
	processing procdb.ProcessingInterface
	runs       rundb.RunInterface
	datasets   dsdb.DatasetInterface
	schema     kpgschema.Interface
}

type Config struct {
	SchemaRepository string
}

type Option func(*Config) *Config

// WithSchemaRepository points at a directory of versioned schema
// definitions; without it, Schema() is inert.
func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func New(ctx context.Context, url string, options ...Option) (kdb.Database, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, err
	}

	c := Config{}
	for _, option := range options {
		c = *option(&c)
	}

	p := kpool.Wrap(pool)
	var schema kpgschema.Interface = kpgschema.Null()
	if c.SchemaRepository != "" {
		schema = kpgschema.New(p, c.SchemaRepository)
	}

	return &dsDBPostgres{
		pool:       pool,
		projects:   projpg.New(p),
		sources:    srcpg.New(p),
		processing: procpg.New(p),
		runs:       runpg.New(p),
		datasets:   dspg.New(p),
		schema:     schema,
	}, nil
}

func (d *dsDBPostgres) Projects() projdb.ProjectInterface {
	return d.projects
}

func (d *dsDBPostgres) Sources() srcdb.SourceInterface {
	return d.sources
}

func (d *dsDBPostgres) Processing() procdb.ProcessingInterface {
	return d.processing
}

func (d *dsDBPostgres) Runs() rundb.RunInterface {
	return d.runs
}

func (d *dsDBPostgres) Datasets() dsdb.DatasetInterface {
	return d.datasets
}

func (d *dsDBPostgres) Schema() kpgschema.Interface {
	return d.schema
}

func (d *dsDBPostgres) Close() error {
	d.pool.Close()
	return nil
}
