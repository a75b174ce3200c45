package db

import (
	dsdb "github.com/datasmith-io/datasmith/pkg/domain/dataset/db"
	procdb "github.com/datasmith-io/datasmith/pkg/domain/processing/db"
	projdb "github.com/datasmith-io/datasmith/pkg/domain/project/db"
	rundb "github.com/datasmith-io/datasmith/pkg/domain/run/db"
	srcdb "github.com/datasmith-io/datasmith/pkg/domain/source/db"
	schemadb "github.com/datasmith-io/datasmith/pkg/db/postgres/schema"
)

// Database bundles the stores backed by one database.
type Database interface {
	Projects() projdb.ProjectInterface
	Sources() srcdb.SourceInterface
	Processing() procdb.ProcessingInterface
	Runs() rundb.RunInterface
	Datasets() dsdb.DatasetInterface
	Schema() schemadb.Interface
	Close() error
}
