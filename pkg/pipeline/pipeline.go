package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// ErrInterrupted is returned by Drive when a progress write reports the
// run is no longer running: cancelled from outside, or reconciled away.
var ErrInterrupted = errors.New("run is interrupted")

// Record is one normalized unit flowing through the stages, tagged with
// the source it was loaded from so per-source configuration applies.
type Record struct {
	SourceId string
	Fields   map[string]any
}

// Input is one ready source the run processes.
type Input struct {
	SourceId     string
	SourceName   string
	SnapshotPath string

	// field renames to apply; empty mapping passes fields through.
	Mapping map[string]string

	Deident domain.DeidentConfig
}

// Output is the assembled dataset file.
type Output struct {
	Path        string
	Size        int64
	RecordCount int
	Stats       domain.DatasetStats
}

// Workspace carries a run's state across stages. Stages read and mutate
// it in sequence; nothing runs concurrently within one run.
type Workspace struct {
	RunId  string
	Config domain.ProcessingConfig
	Inputs []Input

	Records []Record

	// findings per source id, written by the detection stage and read
	// by de-identification.
	Findings map[string][]domain.PIIFinding

	Stats  domain.RunStats
	Output Output

	// Log records a run log line; wired to the run store by the worker.
	Log func(level domain.LogLevel, message string)
}

func (ws *Workspace) log(level domain.LogLevel, format string, args ...any) {
	if ws.Log == nil {
		return
	}
	ws.Log(level, fmt.Sprintf(format, args...))
}

func (ws *Workspace) input(sourceId string) (Input, bool) {
	for _, in := range ws.Inputs {
		if in.SourceId == sourceId {
			return in, true
		}
	}
	return Input{}, false
}

type Stage interface {
	Name() string
	Run(ctx context.Context, ws *Workspace) error
}

// Weighted pairs a stage with its share of the run's progress.
type Weighted struct {
	Stage  Stage
	Weight int
}

// Progress persists the run's progress. ok = false means the run left
// the running state and the pipeline must stop.
type Progress func(ctx context.Context, percent int) (ok bool, err error)

// DefaultStages is the standard chain. Weights sum to 100.
func DefaultStages(reader SnapshotReader, sink ReportSink, writer DatasetWriter) []Weighted {
	return []Weighted{
		{Stage: NewLoad(reader), Weight: 15},
		{Stage: NewMapFields(), Weight: 10},
		{Stage: NewDetectPII(sink), Weight: 25},
		{Stage: NewDeidentify(), Weight: 20},
		{Stage: NewAssemble(writer), Weight: 30},
	}
}

// Drive runs the stages in order, reporting cumulative progress after
// each. Stage weights are expected to sum to 100.
func Drive(ctx context.Context, stages []Weighted, ws *Workspace, progress Progress) error {
	done := 0
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		ws.log(domain.LogInfo, "stage %s: start", s.Stage.Name())
		if err := s.Stage.Run(ctx, ws); err != nil {
			ws.log(domain.LogError, "stage %s: %s", s.Stage.Name(), err)
			return fmt.Errorf("stage %s: %w", s.Stage.Name(), err)
		}

		done += s.Weight
		ok, err := progress(ctx, done)
		if err != nil {
			return err
		}
		if !ok {
			ws.log(domain.LogWarn, "stage %s: run is not running anymore; stopping", s.Stage.Name())
			return ErrInterrupted
		}
	}
	return nil
}
