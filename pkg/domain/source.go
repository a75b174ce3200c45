package domain

import (
	"fmt"
	"time"

	"github.com/datasmith-io/datasmith/pkg/utils/cmp"
)

type SourceStatus string

const (
	// Registered, never synced. Not eligible for runs.
	SourcePending SourceStatus = "pending"

	// A sync is in flight.
	SourceSyncing SourceStatus = "syncing"

	// Synced; a record snapshot exists. Eligible for runs.
	SourceReady SourceStatus = "ready"

	// Last sync failed. Error holds the cause.
	SourceError SourceStatus = "error"
)

func (ss SourceStatus) String() string {
	return string(ss)
}

func AsSourceStatus(status string) (SourceStatus, error) {
	switch status {
	case string(SourcePending):
		return SourcePending, nil
	case string(SourceSyncing):
		return SourceSyncing, nil
	case string(SourceReady):
		return SourceReady, nil
	case string(SourceError):
		return SourceError, nil
	default:
		return "", fmt.Errorf("'%s' is not SourceStatus", status)
	}
}

type SourceType string

const (
	SourceFile     SourceType = "file"
	SourceTeamwork SourceType = "teamwork"
)

func AsSourceType(typ string) (SourceType, error) {
	switch typ {
	case string(SourceFile):
		return SourceFile, nil
	case string(SourceTeamwork):
		return SourceTeamwork, nil
	default:
		return "", fmt.Errorf("'%s' is not SourceType", typ)
	}
}

// Connection fields of a file-variant Source.
type FileSpec struct {
	Path        string
	Size        int64
	ContentType string
}

// Connection fields of a connector-variant Source.
//
// Credential is ciphertext; it crosses the secret.Box boundary only.
type ConnectorSpec struct {
	Domain     string
	Credential []byte
	DataTypes  []string
}

func (c *ConnectorSpec) Equal(o *ConnectorSpec) bool {
	if (c == nil) || (o == nil) {
		return (c == nil) && (o == nil)
	}
	return c.Domain == o.Domain &&
		cmp.SliceEq(c.Credential, o.Credential) &&
		cmp.SliceEq(c.DataTypes, o.DataTypes)
}

type Source struct {
	Id        string
	ProjectId string
	Name      string
	Type      SourceType
	Status    SourceStatus

	// records counted by the last successful sync.
	RecordCount int

	// last sync failure, empty unless Status is error.
	Error string

	// exactly one of File / Connector is set, per Type.
	File      *FileSpec
	Connector *ConnectorSpec

	// normalized record snapshot written by the last successful sync.
	// Internal to the pipeline; never exposed over the API.
	SnapshotPath string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Source) Equal(o *Source) bool {
	if (s == nil) || (o == nil) {
		return (s == nil) && (o == nil)
	}
	fileEq := (s.File == nil && o.File == nil) ||
		(s.File != nil && o.File != nil && *s.File == *o.File)

	return s.Id == o.Id &&
		s.ProjectId == o.ProjectId &&
		s.Name == o.Name &&
		s.Type == o.Type &&
		s.Status == o.Status &&
		s.RecordCount == o.RecordCount &&
		s.Error == o.Error &&
		fileEq &&
		s.Connector.Equal(o.Connector) &&
		s.SnapshotPath == o.SnapshotPath
}

// Per-source mapping from source field name to target field name.
//
// Detected is a read-only hint (field name -> detected type) produced at
// sync time; user updates replace Mapping only.
type SchemaMapping struct {
	Mapping  map[string]string
	Detected map[string]string
}

func (m SchemaMapping) Equal(o SchemaMapping) bool {
	return cmp.MapEq(m.Mapping, o.Mapping) && cmp.MapEq(m.Detected, o.Detected)
}

type DeidentStrategy string

const (
	StrategyMask     DeidentStrategy = "mask"
	StrategyHash     DeidentStrategy = "hash"
	StrategyRemove   DeidentStrategy = "remove"
	StrategyTokenize DeidentStrategy = "tokenize"
)

func AsDeidentStrategy(strategy string) (DeidentStrategy, error) {
	switch strategy {
	case string(StrategyMask):
		return StrategyMask, nil
	case string(StrategyHash):
		return StrategyHash, nil
	case string(StrategyRemove):
		return StrategyRemove, nil
	case string(StrategyTokenize):
		return StrategyTokenize, nil
	default:
		return "", fmt.Errorf("'%s' is not DeidentStrategy", strategy)
	}
}

type DeidentRule struct {
	Field    string
	Strategy DeidentStrategy
}

// User-supplied PII detector, applied in addition to the built-in set.
type CustomDetector struct {
	Name    string
	Pattern string
}

// One entry of the detected-PII report.
type PIIFinding struct {
	Field string
	Kind  string
	Count int
}

// Per-source de-identification configuration.
//
// Report is produced by the detection pass and replaced wholesale each run;
// user updates replace Enabled/Rules/Detectors only.
type DeidentConfig struct {
	Enabled   bool
	Rules     []DeidentRule
	Detectors []CustomDetector
	Report    []PIIFinding
}

func (c DeidentConfig) Equal(o DeidentConfig) bool {
	return c.Enabled == o.Enabled &&
		cmp.SliceContentEq(c.Rules, o.Rules) &&
		cmp.SliceContentEq(c.Detectors, o.Detectors) &&
		cmp.SliceContentEq(c.Report, o.Report)
}
