package db

import (
	"context"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

// SourceSpec is the creation request of a Source.
//
// For connector sources, Credential must already be ciphertext from the
// secret boundary; this layer never sees plaintext.
type SourceSpec struct {
	Name      string
	Type      domain.SourceType
	File      *domain.FileSpec
	Connector *domain.ConnectorSpec
}

// Bundle is a Source together with its per-source configuration,
// as the pipeline's load stage consumes it.
type Bundle struct {
	Source  domain.Source
	Mapping domain.SchemaMapping
	Deident domain.DeidentConfig
}

type SourceInterface interface {
	// New creates a Source under the project together with its empty
	// SchemaMapping and DeidentConfig, atomically.
	New(ctx context.Context, orgId string, projectId string, spec SourceSpec) (domain.Source, error)

	Get(ctx context.Context, orgId string, sourceId string) (domain.Source, error)

	Find(ctx context.Context, orgId string, projectId string) ([]domain.Source, error)

	Delete(ctx context.Context, orgId string, sourceId string) error

	// RequestSync transitions the source to syncing. Permitted from
	// pending, error and ready; a request while already syncing restarts
	// the sync (the weaker guarantee the contract allows).
	RequestSync(ctx context.Context, orgId string, sourceId string) error

	// PickSyncing picks one syncing source for a worker to fetch.
	// ok is false when none is due.
	PickSyncing(ctx context.Context) (domain.Source, bool, error)

	// CompleteSync finishes a sync: ok outcome records the snapshot and
	// count and moves syncing -> ready; a non-empty syncErr moves
	// syncing -> error instead. Conditional on status = syncing, so a
	// completion cannot resurrect a source whose sync was restarted or
	// whose row was deleted mid-flight.
	CompleteSync(ctx context.Context, sourceId string, recordCount int, snapshotPath string, detected map[string]string, syncErr string) error

	Schema(ctx context.Context, orgId string, sourceId string) (domain.SchemaMapping, error)

	// PutSchema replaces the user-editable mapping wholesale.
	PutSchema(ctx context.Context, orgId string, sourceId string, mapping map[string]string) error

	Deident(ctx context.Context, orgId string, sourceId string) (domain.DeidentConfig, error)

	// PutDeident replaces enabled/rules/detectors wholesale; the detected
	// report is preserved.
	PutDeident(ctx context.Context, orgId string, sourceId string, conf domain.DeidentConfig) error

	// PutReport replaces the detected-PII report, written by the
	// pipeline's detection pass. Not tenant-scoped: workers only.
	PutReport(ctx context.Context, sourceId string, report []domain.PIIFinding) error

	// ReadyBundles returns every ready source of the project with its
	// configuration, for the pipeline's load stage. Workers only.
	ReadyBundles(ctx context.Context, projectId string) ([]Bundle, error)
}
