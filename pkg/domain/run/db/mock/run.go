package mock

import (
	"context"
	"errors"
	"time"

	"github.com/datasmith-io/datasmith/pkg/domain"
	dbmock "github.com/datasmith-io/datasmith/pkg/domain/internal/db/mock"
	rundb "github.com/datasmith-io/datasmith/pkg/domain/run/db"
)

type RunInterface struct {
	Impl struct {
		New             func(ctx context.Context, orgId string, projectId string) (domain.Run, error)
		Get             func(ctx context.Context, orgId string, runId string) (domain.Run, error)
		Find            func(ctx context.Context, orgId string, projectId string, page domain.Page) ([]domain.Run, int, error)
		Cancel          func(ctx context.Context, orgId string, runId string) error
		Logs            func(ctx context.Context, orgId string, runId string) ([]domain.RunLog, error)
		PickPending     func(ctx context.Context) (domain.Run, bool, error)
		UpdateProgress  func(ctx context.Context, runId string, progress int) (bool, error)
		AppendLog       func(ctx context.Context, runId string, level domain.LogLevel, message string) error
		FinishCompleted func(ctx context.Context, runId string, stats domain.RunStats, draft domain.DatasetDraft) (bool, error)
		FinishFailed    func(ctx context.Context, runId string, cause string, detail string) error
		ReconcileStale  func(ctx context.Context, olderThan time.Duration) ([]string, error)
	}

	Calls struct {
		New  dbmock.CallLog[struct{ OrgId, ProjectId string }]
		Get  dbmock.CallLog[struct{ OrgId, RunId string }]
		Find dbmock.CallLog[struct {
			OrgId, ProjectId string
			Page             domain.Page
		}]
		Cancel         dbmock.CallLog[struct{ OrgId, RunId string }]
		Logs           dbmock.CallLog[struct{ OrgId, RunId string }]
		PickPending    dbmock.CallLog[struct{}]
		UpdateProgress dbmock.CallLog[struct {
			RunId    string
			Progress int
		}]
		AppendLog dbmock.CallLog[struct {
			RunId   string
			Level   domain.LogLevel
			Message string
		}]
		FinishCompleted dbmock.CallLog[struct {
			RunId string
			Stats domain.RunStats
			Draft domain.DatasetDraft
		}]
		FinishFailed   dbmock.CallLog[struct{ RunId, Cause, Detail string }]
		ReconcileStale dbmock.CallLog[time.Duration]
	}
}

func NewRunInterface() *RunInterface {
	return &RunInterface{}
}

var _ rundb.RunInterface = &RunInterface{}

func (m *RunInterface) New(ctx context.Context, orgId string, projectId string) (domain.Run, error) {
	m.Calls.New = append(m.Calls.New, struct{ OrgId, ProjectId string }{orgId, projectId})
	if m.Impl.New != nil {
		return m.Impl.New(ctx, orgId, projectId)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) Get(ctx context.Context, orgId string, runId string) (domain.Run, error) {
	m.Calls.Get = append(m.Calls.Get, struct{ OrgId, RunId string }{orgId, runId})
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, orgId, runId)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) Find(ctx context.Context, orgId string, projectId string, page domain.Page) ([]domain.Run, int, error) {
	m.Calls.Find = append(m.Calls.Find, struct {
		OrgId, ProjectId string
		Page             domain.Page
	}{orgId, projectId, page})
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, orgId, projectId, page)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) Cancel(ctx context.Context, orgId string, runId string) error {
	m.Calls.Cancel = append(m.Calls.Cancel, struct{ OrgId, RunId string }{orgId, runId})
	if m.Impl.Cancel != nil {
		return m.Impl.Cancel(ctx, orgId, runId)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) Logs(ctx context.Context, orgId string, runId string) ([]domain.RunLog, error) {
	m.Calls.Logs = append(m.Calls.Logs, struct{ OrgId, RunId string }{orgId, runId})
	if m.Impl.Logs != nil {
		return m.Impl.Logs(ctx, orgId, runId)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) PickPending(ctx context.Context) (domain.Run, bool, error) {
	m.Calls.PickPending = append(m.Calls.PickPending, struct{}{})
	if m.Impl.PickPending != nil {
		return m.Impl.PickPending(ctx)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) UpdateProgress(ctx context.Context, runId string, progress int) (bool, error) {
	m.Calls.UpdateProgress = append(m.Calls.UpdateProgress, struct {
		RunId    string
		Progress int
	}{runId, progress})
	if m.Impl.UpdateProgress != nil {
		return m.Impl.UpdateProgress(ctx, runId, progress)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) AppendLog(ctx context.Context, runId string, level domain.LogLevel, message string) error {
	m.Calls.AppendLog = append(m.Calls.AppendLog, struct {
		RunId   string
		Level   domain.LogLevel
		Message string
	}{runId, level, message})
	if m.Impl.AppendLog != nil {
		return m.Impl.AppendLog(ctx, runId, level, message)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) FinishCompleted(ctx context.Context, runId string, stats domain.RunStats, draft domain.DatasetDraft) (bool, error) {
	m.Calls.FinishCompleted = append(m.Calls.FinishCompleted, struct {
		RunId string
		Stats domain.RunStats
		Draft domain.DatasetDraft
	}{runId, stats, draft})
	if m.Impl.FinishCompleted != nil {
		return m.Impl.FinishCompleted(ctx, runId, stats, draft)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) FinishFailed(ctx context.Context, runId string, cause string, detail string) error {
	m.Calls.FinishFailed = append(m.Calls.FinishFailed, struct{ RunId, Cause, Detail string }{runId, cause, detail})
	if m.Impl.FinishFailed != nil {
		return m.Impl.FinishFailed(ctx, runId, cause, detail)
	}
	panic(errors.New("it should not be called"))
}

func (m *RunInterface) ReconcileStale(ctx context.Context, olderThan time.Duration) ([]string, error) {
	m.Calls.ReconcileStale = append(m.Calls.ReconcileStale, olderThan)
	if m.Impl.ReconcileStale != nil {
		return m.Impl.ReconcileStale(ctx, olderThan)
	}
	panic(errors.New("it should not be called"))
}
