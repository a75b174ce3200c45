package mock

import (
	"context"
	"errors"

	"github.com/datasmith-io/datasmith/pkg/domain"
	dbmock "github.com/datasmith-io/datasmith/pkg/domain/internal/db/mock"
	srcdb "github.com/datasmith-io/datasmith/pkg/domain/source/db"
)

type SourceInterface struct {
	Impl struct {
		New          func(ctx context.Context, orgId string, projectId string, spec srcdb.SourceSpec) (domain.Source, error)
		Get          func(ctx context.Context, orgId string, sourceId string) (domain.Source, error)
		Find         func(ctx context.Context, orgId string, projectId string) ([]domain.Source, error)
		Delete       func(ctx context.Context, orgId string, sourceId string) error
		RequestSync  func(ctx context.Context, orgId string, sourceId string) error
		PickSyncing  func(ctx context.Context) (domain.Source, bool, error)
		CompleteSync func(ctx context.Context, sourceId string, recordCount int, snapshotPath string, detected map[string]string, syncErr string) error
		Schema       func(ctx context.Context, orgId string, sourceId string) (domain.SchemaMapping, error)
		PutSchema    func(ctx context.Context, orgId string, sourceId string, mapping map[string]string) error
		Deident      func(ctx context.Context, orgId string, sourceId string) (domain.DeidentConfig, error)
		PutDeident   func(ctx context.Context, orgId string, sourceId string, conf domain.DeidentConfig) error
		PutReport    func(ctx context.Context, sourceId string, report []domain.PIIFinding) error
		ReadyBundles func(ctx context.Context, projectId string) ([]srcdb.Bundle, error)
	}

	Calls struct {
		New dbmock.CallLog[struct {
			OrgId, ProjectId string
			Spec             srcdb.SourceSpec
		}]
		Get          dbmock.CallLog[struct{ OrgId, SourceId string }]
		Find         dbmock.CallLog[struct{ OrgId, ProjectId string }]
		Delete       dbmock.CallLog[struct{ OrgId, SourceId string }]
		RequestSync  dbmock.CallLog[struct{ OrgId, SourceId string }]
		PickSyncing  dbmock.CallLog[struct{}]
		CompleteSync dbmock.CallLog[struct {
			SourceId     string
			RecordCount  int
			SnapshotPath string
			Detected     map[string]string
			SyncErr      string
		}]
		Schema    dbmock.CallLog[struct{ OrgId, SourceId string }]
		PutSchema dbmock.CallLog[struct {
			OrgId, SourceId string
			Mapping         map[string]string
		}]
		Deident    dbmock.CallLog[struct{ OrgId, SourceId string }]
		PutDeident dbmock.CallLog[struct {
			OrgId, SourceId string
			Conf            domain.DeidentConfig
		}]
		PutReport dbmock.CallLog[struct {
			SourceId string
			Report   []domain.PIIFinding
		}]
		ReadyBundles dbmock.CallLog[string]
	}
}

func NewSourceInterface() *SourceInterface {
	return &SourceInterface{}
}

var _ srcdb.SourceInterface = &SourceInterface{}

func (m *SourceInterface) New(ctx context.Context, orgId string, projectId string, spec srcdb.SourceSpec) (domain.Source, error) {
	m.Calls.New = append(m.Calls.New, struct {
		OrgId, ProjectId string
		Spec             srcdb.SourceSpec
	}{orgId, projectId, spec})
	if m.Impl.New != nil {
		return m.Impl.New(ctx, orgId, projectId, spec)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) Get(ctx context.Context, orgId string, sourceId string) (domain.Source, error) {
	m.Calls.Get = append(m.Calls.Get, struct{ OrgId, SourceId string }{orgId, sourceId})
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, orgId, sourceId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) Find(ctx context.Context, orgId string, projectId string) ([]domain.Source, error) {
	m.Calls.Find = append(m.Calls.Find, struct{ OrgId, ProjectId string }{orgId, projectId})
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, orgId, projectId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) Delete(ctx context.Context, orgId string, sourceId string) error {
	m.Calls.Delete = append(m.Calls.Delete, struct{ OrgId, SourceId string }{orgId, sourceId})
	if m.Impl.Delete != nil {
		return m.Impl.Delete(ctx, orgId, sourceId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) RequestSync(ctx context.Context, orgId string, sourceId string) error {
	m.Calls.RequestSync = append(m.Calls.RequestSync, struct{ OrgId, SourceId string }{orgId, sourceId})
	if m.Impl.RequestSync != nil {
		return m.Impl.RequestSync(ctx, orgId, sourceId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) PickSyncing(ctx context.Context) (domain.Source, bool, error) {
	m.Calls.PickSyncing = append(m.Calls.PickSyncing, struct{}{})
	if m.Impl.PickSyncing != nil {
		return m.Impl.PickSyncing(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) CompleteSync(ctx context.Context, sourceId string, recordCount int, snapshotPath string, detected map[string]string, syncErr string) error {
	m.Calls.CompleteSync = append(m.Calls.CompleteSync, struct {
		SourceId     string
		RecordCount  int
		SnapshotPath string
		Detected     map[string]string
		SyncErr      string
	}{sourceId, recordCount, snapshotPath, detected, syncErr})
	if m.Impl.CompleteSync != nil {
		return m.Impl.CompleteSync(ctx, sourceId, recordCount, snapshotPath, detected, syncErr)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) Schema(ctx context.Context, orgId string, sourceId string) (domain.SchemaMapping, error) {
	m.Calls.Schema = append(m.Calls.Schema, struct{ OrgId, SourceId string }{orgId, sourceId})
	if m.Impl.Schema != nil {
		return m.Impl.Schema(ctx, orgId, sourceId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) PutSchema(ctx context.Context, orgId string, sourceId string, mapping map[string]string) error {
	m.Calls.PutSchema = append(m.Calls.PutSchema, struct {
		OrgId, SourceId string
		Mapping         map[string]string
	}{orgId, sourceId, mapping})
	if m.Impl.PutSchema != nil {
		return m.Impl.PutSchema(ctx, orgId, sourceId, mapping)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) Deident(ctx context.Context, orgId string, sourceId string) (domain.DeidentConfig, error) {
	m.Calls.Deident = append(m.Calls.Deident, struct{ OrgId, SourceId string }{orgId, sourceId})
	if m.Impl.Deident != nil {
		return m.Impl.Deident(ctx, orgId, sourceId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) PutDeident(ctx context.Context, orgId string, sourceId string, conf domain.DeidentConfig) error {
	m.Calls.PutDeident = append(m.Calls.PutDeident, struct {
		OrgId, SourceId string
		Conf            domain.DeidentConfig
	}{orgId, sourceId, conf})
	if m.Impl.PutDeident != nil {
		return m.Impl.PutDeident(ctx, orgId, sourceId, conf)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) PutReport(ctx context.Context, sourceId string, report []domain.PIIFinding) error {
	m.Calls.PutReport = append(m.Calls.PutReport, struct {
		SourceId string
		Report   []domain.PIIFinding
	}{sourceId, report})
	if m.Impl.PutReport != nil {
		return m.Impl.PutReport(ctx, sourceId, report)
	}
	panic(errors.New("it should not be called"))
}

func (m *SourceInterface) ReadyBundles(ctx context.Context, projectId string) ([]srcdb.Bundle, error) {
	m.Calls.ReadyBundles = append(m.Calls.ReadyBundles, projectId)
	if m.Impl.ReadyBundles != nil {
		return m.Impl.ReadyBundles(ctx, projectId)
	}
	panic(errors.New("it should not be called"))
}
