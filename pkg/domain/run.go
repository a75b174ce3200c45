package domain

import (
	"fmt"
	"time"
)

type RunStatus string

const (
	// This Run is registered and waiting to be picked by a worker.
	RunPending RunStatus = "pending"

	// A worker is driving the pipeline of this Run.
	RunRunning RunStatus = "running"

	// This Run has been done, successfully. Its Dataset exists.
	RunCompleted RunStatus = "completed"

	// This Run stopped with error. No Dataset exists.
	RunFailed RunStatus = "failed"

	// This Run was cancelled by the user before it completed.
	RunCancelled RunStatus = "cancelled"
)

func (rs RunStatus) String() string {
	return string(rs)
}

func AsRunStatus(status string) (RunStatus, error) {
	switch status {
	case string(RunPending):
		return RunPending, nil
	case string(RunRunning):
		return RunRunning, nil
	case string(RunCompleted):
		return RunCompleted, nil
	case string(RunFailed):
		return RunFailed, nil
	case string(RunCancelled):
		return RunCancelled, nil
	default:
		return "", fmt.Errorf("'%s' is not RunStatus", status)
	}
}

// Terminal statuses absorb: no transition is permitted out of them.
func (rs RunStatus) Terminal() bool {
	switch rs {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// Active statuses count against the one-active-run-per-project invariant.
func (rs RunStatus) Active() bool {
	switch rs {
	case RunPending, RunRunning:
		return true
	default:
		return false
	}
}

func ActiveRunStatuses() []RunStatus {
	return []RunStatus{RunPending, RunRunning}
}

// CanTransit tells whether the state machine permits rs -> next.
//
//	pending --> running | cancelled
//	running --> completed | failed | cancelled
func (rs RunStatus) CanTransit(next RunStatus) bool {
	switch rs {
	case RunPending:
		return next == RunRunning || next == RunCancelled
	case RunRunning:
		return next == RunCompleted || next == RunFailed || next == RunCancelled
	default:
		return false
	}
}

// Statistics recorded on a Run when its pipeline finishes.
type RunStats struct {
	TotalRecords     int
	ProcessedRecords int
	PIIDetected      int
	PIIMasked        int
}

func (s RunStats) Equal(o RunStats) bool {
	return s == o
}

type Run struct {
	Id        string
	ProjectId string
	Status    RunStatus

	// 0..100. Monotonically non-decreasing while running, 100 when completed.
	Progress int

	StartedAt  *time.Time
	FinishedAt *time.Time

	// Pipeline failure record. Empty unless Status is failed.
	Error       string
	ErrorDetail string

	// Frozen copy of the project's processing configuration at creation.
	Config ProcessingConfig

	// Present only after the pipeline finished successfully.
	Stats *RunStats

	CreatedAt time.Time

	// Worker heartbeat. Refreshed by every persisted progress write.
	UpdatedAt time.Time
}

func (r *Run) Equal(o *Run) bool {
	if (r == nil) || (o == nil) {
		return (r == nil) && (o == nil)
	}
	return r.Id == o.Id &&
		r.ProjectId == o.ProjectId &&
		r.Status == o.Status &&
		r.Progress == o.Progress &&
		timePtrEq(r.StartedAt, o.StartedAt) &&
		timePtrEq(r.FinishedAt, o.FinishedAt) &&
		r.Error == o.Error &&
		r.ErrorDetail == o.ErrorDetail &&
		r.Config == o.Config &&
		((r.Stats == nil && o.Stats == nil) ||
			(r.Stats != nil && o.Stats != nil && r.Stats.Equal(*o.Stats))) &&
		r.CreatedAt.Equal(o.CreatedAt) &&
		r.UpdatedAt.Equal(o.UpdatedAt)
}

func timePtrEq(a, b *time.Time) bool {
	if (a == nil) || (b == nil) {
		return (a == nil) && (b == nil)
	}
	return a.Equal(*b)
}

type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

func AsLogLevel(level string) (LogLevel, error) {
	switch level {
	case string(LogInfo):
		return LogInfo, nil
	case string(LogWarn):
		return LogWarn, nil
	case string(LogError):
		return LogError, nil
	default:
		return "", fmt.Errorf("'%s' is not LogLevel", level)
	}
}

// A line of a Run's pipeline log. Append-only, never reordered.
type RunLog struct {
	At      time.Time
	Level   LogLevel
	Message string
}

func (l RunLog) Equal(o RunLog) bool {
	return l.At.Equal(o.At) && l.Level == o.Level && l.Message == o.Message
}
