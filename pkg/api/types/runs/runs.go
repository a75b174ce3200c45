package runs

import (
	"github.com/datasmith-io/datasmith/pkg/api/types/processing"
	"github.com/datasmith-io/datasmith/pkg/api/types/rfctime"
	"github.com/datasmith-io/datasmith/pkg/domain"
	"github.com/datasmith-io/datasmith/pkg/utils/slices"
)

type Stats struct {
	TotalRecords     int `json:"totalRecords"`
	ProcessedRecords int `json:"processedRecords"`
	PiiDetected      int `json:"piiDetected"`
	PiiMasked        int `json:"piiMasked"`
}

type Detail struct {
	RunId       string            `json:"runId"`
	ProjectId   string            `json:"projectId"`
	Status      string            `json:"status"`
	Progress    int               `json:"progress"`
	StartedAt   *rfctime.RFC3339  `json:"startedAt,omitempty"`
	FinishedAt  *rfctime.RFC3339  `json:"finishedAt,omitempty"`
	Error       string            `json:"error,omitempty"`
	ErrorDetail string            `json:"errorDetails,omitempty"`
	Config      processing.Config `json:"config"`
	Stats       *Stats            `json:"stats,omitempty"`
	CreatedAt   rfctime.RFC3339   `json:"createdAt"`
	UpdatedAt   rfctime.RFC3339   `json:"updatedAt"`
}

func (d Detail) Equal(o Detail) bool {
	startedEq := (d.StartedAt == nil && o.StartedAt == nil) ||
		(d.StartedAt != nil && o.StartedAt != nil && d.StartedAt.Equal(*o.StartedAt))
	finishedEq := (d.FinishedAt == nil && o.FinishedAt == nil) ||
		(d.FinishedAt != nil && o.FinishedAt != nil && d.FinishedAt.Equal(*o.FinishedAt))
	statsEq := (d.Stats == nil && o.Stats == nil) ||
		(d.Stats != nil && o.Stats != nil && *d.Stats == *o.Stats)

	return d.RunId == o.RunId &&
		d.ProjectId == o.ProjectId &&
		d.Status == o.Status &&
		d.Progress == o.Progress &&
		startedEq && finishedEq &&
		d.Error == o.Error &&
		d.ErrorDetail == o.ErrorDetail &&
		d.Config.Equal(o.Config) &&
		statsEq &&
		d.CreatedAt.Equal(o.CreatedAt) &&
		d.UpdatedAt.Equal(o.UpdatedAt)
}

func Compose(r domain.Run) Detail {
	d := Detail{
		RunId:       r.Id,
		ProjectId:   r.ProjectId,
		Status:      string(r.Status),
		Progress:    r.Progress,
		StartedAt:   rfctime.Ref(r.StartedAt),
		FinishedAt:  rfctime.Ref(r.FinishedAt),
		Error:       r.Error,
		ErrorDetail: r.ErrorDetail,
		Config:      processing.Compose(r.Config),
		CreatedAt:   rfctime.New(r.CreatedAt),
		UpdatedAt:   rfctime.New(r.UpdatedAt),
	}
	if r.Stats != nil {
		d.Stats = &Stats{
			TotalRecords:     r.Stats.TotalRecords,
			ProcessedRecords: r.Stats.ProcessedRecords,
			PiiDetected:      r.Stats.PIIDetected,
			PiiMasked:        r.Stats.PIIMasked,
		}
	}
	return d
}

// Status is the slim view for the poll endpoint. Clients watching a
// run's progress do not need the frozen config back on every tick.
type Status struct {
	RunId       string           `json:"runId"`
	Status      string           `json:"status"`
	Progress    int              `json:"progress"`
	StartedAt   *rfctime.RFC3339 `json:"startedAt,omitempty"`
	FinishedAt  *rfctime.RFC3339 `json:"finishedAt,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorDetail string           `json:"errorDetails,omitempty"`
	UpdatedAt   rfctime.RFC3339  `json:"updatedAt"`
}

func ComposeStatus(r domain.Run) Status {
	return Status{
		RunId:       r.Id,
		Status:      string(r.Status),
		Progress:    r.Progress,
		StartedAt:   rfctime.Ref(r.StartedAt),
		FinishedAt:  rfctime.Ref(r.FinishedAt),
		Error:       r.Error,
		ErrorDetail: r.ErrorDetail,
		UpdatedAt:   rfctime.New(r.UpdatedAt),
	}
}

type LogLine struct {
	At      rfctime.RFC3339 `json:"at"`
	Level   string          `json:"level"`
	Message string          `json:"message"`
}

func ComposeLogs(logs []domain.RunLog) []LogLine {
	return slices.Map(logs, func(l domain.RunLog) LogLine {
		return LogLine{
			At:      rfctime.New(l.At),
			Level:   string(l.Level),
			Message: l.Message,
		}
	})
}
