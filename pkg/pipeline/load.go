package pipeline

import (
	"context"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// SnapshotReader reads a source's normalized record snapshot.
type SnapshotReader interface {
	ReadSnapshot(path string) ([]map[string]any, error)
}

type loadStage struct {
	reader SnapshotReader
}

// NewLoad reads every input source's snapshot into the workspace.
func NewLoad(reader SnapshotReader) Stage {
	return &loadStage{reader: reader}
}

func (*loadStage) Name() string {
	return "load"
}

func (l *loadStage) Run(ctx context.Context, ws *Workspace) error {
	records := []Record{}
	for _, in := range ws.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		rs, err := l.reader.ReadSnapshot(in.SnapshotPath)
		if err != nil {
			return err
		}
		for _, fields := range rs {
			records = append(records, Record{SourceId: in.SourceId, Fields: fields})
		}
		ws.log(domain.LogInfo, "loaded %d records from source %s", len(rs), in.SourceName)
	}
	ws.Records = records
	ws.Stats.TotalRecords = len(records)
	return nil
}
