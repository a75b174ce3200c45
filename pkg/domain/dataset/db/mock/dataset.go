package mock

import (
	"context"
	"errors"

	"github.com/datasmith-io/datasmith/pkg/domain"
	dsdb "github.com/datasmith-io/datasmith/pkg/domain/dataset/db"
	dbmock "github.com/datasmith-io/datasmith/pkg/domain/internal/db/mock"
)

type DatasetInterface struct {
	Impl struct {
		Get      func(ctx context.Context, orgId string, datasetId string) (domain.Dataset, error)
		GetByRun func(ctx context.Context, orgId string, runId string) (domain.Dataset, error)
		Find     func(ctx context.Context, orgId string, projectId string) ([]domain.Dataset, error)
	}

	Calls struct {
		Get      dbmock.CallLog[struct{ OrgId, DatasetId string }]
		GetByRun dbmock.CallLog[struct{ OrgId, RunId string }]
		Find     dbmock.CallLog[struct{ OrgId, ProjectId string }]
	}
}

func NewDatasetInterface() *DatasetInterface {
	return &DatasetInterface{}
}

var _ dsdb.DatasetInterface = &DatasetInterface{}

func (m *DatasetInterface) Get(ctx context.Context, orgId string, datasetId string) (domain.Dataset, error) {
	m.Calls.Get = append(m.Calls.Get, struct{ OrgId, DatasetId string }{orgId, datasetId})
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, orgId, datasetId)
	}
	panic(errors.New("it should not be called"))
}

func (m *DatasetInterface) GetByRun(ctx context.Context, orgId string, runId string) (domain.Dataset, error) {
	m.Calls.GetByRun = append(m.Calls.GetByRun, struct{ OrgId, RunId string }{orgId, runId})
	if m.Impl.GetByRun != nil {
		return m.Impl.GetByRun(ctx, orgId, runId)
	}
	panic(errors.New("it should not be called"))
}

func (m *DatasetInterface) Find(ctx context.Context, orgId string, projectId string) ([]domain.Dataset, error) {
	m.Calls.Find = append(m.Calls.Find, struct{ OrgId, ProjectId string }{orgId, projectId})
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, orgId, projectId)
	}
	panic(errors.New("it should not be called"))
}
