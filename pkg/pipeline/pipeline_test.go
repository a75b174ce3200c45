package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/datasmith-io/datasmith/pkg/domain"
	"github.com/datasmith-io/datasmith/pkg/pipeline"
	"github.com/datasmith-io/datasmith/pkg/utils/cmp"
)

type fakeStage struct {
	name string
	run  func(ctx context.Context, ws *pipeline.Workspace) error
}

func (f fakeStage) Name() string { return f.name }

func (f fakeStage) Run(ctx context.Context, ws *pipeline.Workspace) error {
	if f.run == nil {
		return nil
	}
	return f.run(ctx, ws)
}

func TestDrive(t *testing.T) {
	ctx := context.Background()

	stages := func(names ...string) []pipeline.Weighted {
		ws := []pipeline.Weighted{}
		for _, n := range names {
			ws = append(ws, pipeline.Weighted{Stage: fakeStage{name: n}, Weight: 100 / len(names)})
		}
		return ws
	}

	t.Run("it reports cumulative progress after each stage", func(t *testing.T) {
		reported := []int{}
		err := pipeline.Drive(ctx, stages("a", "b", "c", "d"), &pipeline.Workspace{},
			func(ctx context.Context, percent int) (bool, error) {
				reported = append(reported, percent)
				return true, nil
			},
		)
		if err != nil {
			t.Fatal(err)
		}
		if !cmp.SliceEq(reported, []int{25, 50, 75, 100}) {
			t.Errorf("unexpected progress: %v", reported)
		}
	})

	t.Run("it stops with ErrInterrupted when a progress write says the run left running", func(t *testing.T) {
		ran := []string{}
		chain := []pipeline.Weighted{
			{Stage: fakeStage{name: "a", run: func(ctx context.Context, ws *pipeline.Workspace) error {
				ran = append(ran, "a")
				return nil
			}}, Weight: 50},
			{Stage: fakeStage{name: "b", run: func(ctx context.Context, ws *pipeline.Workspace) error {
				ran = append(ran, "b")
				return nil
			}}, Weight: 50},
		}

		err := pipeline.Drive(ctx, chain, &pipeline.Workspace{},
			func(ctx context.Context, percent int) (bool, error) { return false, nil },
		)
		if !errors.Is(err, pipeline.ErrInterrupted) {
			t.Errorf("unexpected error: %v", err)
		}
		if !cmp.SliceEq(ran, []string{"a"}) {
			t.Errorf("stages after the interruption ran: %v", ran)
		}
	})

	t.Run("a stage failure stops the chain with the stage named", func(t *testing.T) {
		fakeErr := errors.New("fake stage failure")
		chain := []pipeline.Weighted{
			{Stage: fakeStage{name: "broken", run: func(ctx context.Context, ws *pipeline.Workspace) error {
				return fakeErr
			}}, Weight: 100},
		}
		err := pipeline.Drive(ctx, chain, &pipeline.Workspace{},
			func(ctx context.Context, percent int) (bool, error) { return true, nil },
		)
		if !errors.Is(err, fakeErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("a cancelled context stops before the next stage", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := pipeline.Drive(cctx, stages("a"), &pipeline.Workspace{},
			func(ctx context.Context, percent int) (bool, error) { return true, nil },
		)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("stage logs reach the workspace log", func(t *testing.T) {
		logged := []string{}
		ws := &pipeline.Workspace{
			Log: func(level domain.LogLevel, message string) {
				logged = append(logged, message)
			},
		}
		if err := pipeline.Drive(ctx, stages("a"), ws,
			func(ctx context.Context, percent int) (bool, error) { return true, nil },
		); err != nil {
			t.Fatal(err)
		}
		if len(logged) == 0 {
			t.Error("no log lines recorded")
		}
	})
}
