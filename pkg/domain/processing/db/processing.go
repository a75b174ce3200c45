package db

import (
	"context"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

type ProcessingInterface interface {
	// Get reads the project's processing configuration.
	// Projects created before the configuration row existed fall back to
	// defaults; the project itself must exist in the tenant.
	Get(ctx context.Context, orgId string, projectId string) (domain.ProcessingConfig, error)

	// Put replaces the project's processing configuration wholesale.
	// The config must already be validated (domain.ProcessingConfig.Validate).
	Put(ctx context.Context, orgId string, projectId string, conf domain.ProcessingConfig) error
}
