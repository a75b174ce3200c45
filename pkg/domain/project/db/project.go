package db

import (
	"context"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

type ProjectInterface interface {
	// New creates a project with a default processing configuration,
	// atomically. The project name must be unique among non-deleted
	// projects of the organization -> else kerr.ErrProjectNameTaken.
	New(ctx context.Context, orgId string, name string) (domain.Project, error)

	// Get retrieves a live project of the organization.
	Get(ctx context.Context, orgId string, projectId string) (domain.Project, error)

	// Find lists live projects of the organization, newest first.
	Find(ctx context.Context, orgId string) ([]domain.Project, error)

	// Delete tombstones a project. Sources, runs and datasets stay in
	// place behind the tombstone until the rows are garbage collected.
	Delete(ctx context.Context, orgId string, projectId string) error
}
