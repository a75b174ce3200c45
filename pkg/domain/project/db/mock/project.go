package mock

import (
	"context"
	"errors"

	"github.com/datasmith-io/datasmith/pkg/domain"
	dbmock "github.com/datasmith-io/datasmith/pkg/domain/internal/db/mock"
	projdb "github.com/datasmith-io/datasmith/pkg/domain/project/db"
)

type ProjectInterface struct {
	Impl struct {
		New    func(ctx context.Context, orgId string, name string) (domain.Project, error)
		Get    func(ctx context.Context, orgId string, projectId string) (domain.Project, error)
		Find   func(ctx context.Context, orgId string) ([]domain.Project, error)
		Delete func(ctx context.Context, orgId string, projectId string) error
	}

	Calls struct {
		New    dbmock.CallLog[struct{ OrgId, Name string }]
		Get    dbmock.CallLog[struct{ OrgId, ProjectId string }]
		Find   dbmock.CallLog[string]
		Delete dbmock.CallLog[struct{ OrgId, ProjectId string }]
	}
}

func NewProjectInterface() *ProjectInterface {
	return &ProjectInterface{}
}

var _ projdb.ProjectInterface = &ProjectInterface{}

func (m *ProjectInterface) New(ctx context.Context, orgId string, name string) (domain.Project, error) {
	m.Calls.New = append(m.Calls.New, struct{ OrgId, Name string }{orgId, name})
	if m.Impl.New != nil {
		return m.Impl.New(ctx, orgId, name)
	}
	panic(errors.New("it should not be called"))
}

func (m *ProjectInterface) Get(ctx context.Context, orgId string, projectId string) (domain.Project, error) {
	m.Calls.Get = append(m.Calls.Get, struct{ OrgId, ProjectId string }{orgId, projectId})
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, orgId, projectId)
	}
	panic(errors.New("it should not be called"))
}

func (m *ProjectInterface) Find(ctx context.Context, orgId string) ([]domain.Project, error) {
	m.Calls.Find = append(m.Calls.Find, orgId)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, orgId)
	}
	panic(errors.New("it should not be called"))
}

func (m *ProjectInterface) Delete(ctx context.Context, orgId string, projectId string) error {
	m.Calls.Delete = append(m.Calls.Delete, struct{ OrgId, ProjectId string }{orgId, projectId})
	if m.Impl.Delete != nil {
		return m.Impl.Delete(ctx, orgId, projectId)
	}
	panic(errors.New("it should not be called"))
}
