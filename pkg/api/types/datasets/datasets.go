package datasets

import (
	"github.com/datasmith-io/datasmith/pkg/api/types/rfctime"
	"github.com/datasmith-io/datasmith/pkg/domain"
)

type Stats struct {
	Conversations         int     `json:"conversations"`
	AvgConversationLength float64 `json:"avgConversationLength"`
	UniqueSpeakers        int     `json:"uniqueSpeakers"`
}

type Detail struct {
	DatasetId   string          `json:"datasetId"`
	RunId       string          `json:"runId"`
	Name        string          `json:"name"`
	Format      string          `json:"format"`
	FileSize    int64           `json:"fileSize"`
	RecordCount int             `json:"recordCount"`
	Stats       Stats           `json:"stats"`
	CreatedAt   rfctime.RFC3339 `json:"createdAt"`
}

func (d Detail) Equal(o Detail) bool {
	return d.DatasetId == o.DatasetId &&
		d.RunId == o.RunId &&
		d.Name == o.Name &&
		d.Format == o.Format &&
		d.FileSize == o.FileSize &&
		d.RecordCount == o.RecordCount &&
		d.Stats == o.Stats &&
		d.CreatedAt.Equal(o.CreatedAt)
}

func Compose(ds domain.Dataset) Detail {
	return Detail{
		DatasetId:   ds.Id,
		RunId:       ds.RunId,
		Name:        ds.Name,
		Format:      string(ds.Format),
		FileSize:    ds.FileSize,
		RecordCount: ds.RecordCount,
		Stats: Stats{
			Conversations:         ds.Stats.Conversations,
			AvgConversationLength: ds.Stats.AvgConversationLength,
			UniqueSpeakers:        ds.Stats.UniqueSpeakers,
		},
		CreatedAt: rfctime.New(ds.CreatedAt),
	}
}
