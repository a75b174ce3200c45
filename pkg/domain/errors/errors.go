package errors

import (
	"errors"
	"fmt"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

var (
	// requested resource is missing, or belongs to another tenant.
	// The two cases are deliberately indistinguishable.
	ErrMissing = errors.New("missing")

	// a run in pending or running state already exists for the project.
	ErrAlreadyActiveRun = errors.New("a run is already active for the project")

	// the project has no source in ready status.
	ErrNoReadySources = errors.New("no ready sources")

	ErrInvalidRunStateChanging = errors.New("cannot change run state")

	ErrInvalidSourceStateChanging = errors.New("cannot change source state")

	// the project name is taken by another live project in the organization.
	ErrProjectNameTaken = errors.New("project name is already used")
)

func NewErrInvalidRunStateChanging(from, to domain.RunStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidRunStateChanging, from, to)
}

func NewErrInvalidSourceStateChanging(from, to domain.SourceStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidSourceStateChanging, from, to)
}
