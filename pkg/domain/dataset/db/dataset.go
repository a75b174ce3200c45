package db

import (
	"context"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// DatasetInterface reads materialized datasets. Materialization itself
// happens in the run store, in the same transaction as the run's
// completed transition.
type DatasetInterface interface {
	Get(ctx context.Context, orgId string, datasetId string) (domain.Dataset, error)

	// GetByRun resolves the dataset of a run; dberrors.Missing until the
	// run completes.
	GetByRun(ctx context.Context, orgId string, runId string) (domain.Dataset, error)

	Find(ctx context.Context, orgId string, projectId string) ([]domain.Dataset, error)
}
