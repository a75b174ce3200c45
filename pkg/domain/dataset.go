package domain

import "time"

// Aggregate statistics of a materialized Dataset.
type DatasetStats struct {
	Conversations         int
	AvgConversationLength float64
	UniqueSpeakers        int
}

// DatasetDraft is the pipeline output to materialize as a Dataset when
// its run reaches completed. The id and creation time are assigned on
// insert.
type DatasetDraft struct {
	Name   string
	Format OutputFormat

	FilePath string
	FileSize int64

	RecordCount int
	Stats       DatasetStats
}

// Dataset is the derived output of a completed Run, owned by it one-to-one.
//
// A Dataset exists if and only if its Run reached completed.
type Dataset struct {
	Id    string
	RunId string
	Name  string

	Format OutputFormat

	FilePath string
	FileSize int64

	RecordCount int
	Stats       DatasetStats

	CreatedAt time.Time
}

func (d *Dataset) Equal(o *Dataset) bool {
	if (d == nil) || (o == nil) {
		return (d == nil) && (o == nil)
	}
	return d.Id == o.Id &&
		d.RunId == o.RunId &&
		d.Name == o.Name &&
		d.Format == o.Format &&
		d.FilePath == o.FilePath &&
		d.FileSize == o.FileSize &&
		d.RecordCount == o.RecordCount &&
		d.Stats == o.Stats &&
		d.CreatedAt.Equal(o.CreatedAt)
}
