package mock

import (
	"context"
	"errors"

	"github.com/datasmith-io/datasmith/pkg/domain"
	dbmock "github.com/datasmith-io/datasmith/pkg/domain/internal/db/mock"
	procdb "github.com/datasmith-io/datasmith/pkg/domain/processing/db"
)

type ProcessingInterface struct {
	Impl struct {
		Get func(ctx context.Context, orgId string, projectId string) (domain.ProcessingConfig, error)
		Put func(ctx context.Context, orgId string, projectId string, conf domain.ProcessingConfig) error
	}

	Calls struct {
		Get dbmock.CallLog[struct{ OrgId, ProjectId string }]
		Put dbmock.CallLog[struct {
			OrgId, ProjectId string
			Conf             domain.ProcessingConfig
		}]
	}
}

func NewProcessingInterface() *ProcessingInterface {
	return &ProcessingInterface{}
}

var _ procdb.ProcessingInterface = &ProcessingInterface{}

func (m *ProcessingInterface) Get(ctx context.Context, orgId string, projectId string) (domain.ProcessingConfig, error) {
	m.Calls.Get = append(m.Calls.Get, struct{ OrgId, ProjectId string }{orgId, projectId})
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, orgId, projectId)
	}
	panic(errors.New("it should not be called"))
}

func (m *ProcessingInterface) Put(ctx context.Context, orgId string, projectId string, conf domain.ProcessingConfig) error {
	m.Calls.Put = append(m.Calls.Put, struct {
		OrgId, ProjectId string
		Conf             domain.ProcessingConfig
	}{orgId, projectId, conf})
	if m.Impl.Put != nil {
		return m.Impl.Put(ctx, orgId, projectId, conf)
	}
	panic(errors.New("it should not be called"))
}
