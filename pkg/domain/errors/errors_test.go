package errors_test

import (
	"errors"
	"testing"

	"github.com/datasmith-io/datasmith/pkg/domain"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
)

func TestStateChangingErrors(t *testing.T) {
	t.Run("a run state error wraps its sentinel and names both states", func(t *testing.T) {
		err := kerr.NewErrInvalidRunStateChanging(domain.RunCompleted, domain.RunCancelled)
		if !errors.Is(err, kerr.ErrInvalidRunStateChanging) {
			t.Errorf("sentinel lost: %+v", err)
		}
		if msg := err.Error(); msg != "cannot change run state: completed -> cancelled" {
			t.Errorf("unmatch: message: %s", msg)
		}
	})

	t.Run("a source state error wraps its sentinel and names both states", func(t *testing.T) {
		err := kerr.NewErrInvalidSourceStateChanging(domain.SourceSyncing, domain.SourceReady)
		if !errors.Is(err, kerr.ErrInvalidSourceStateChanging) {
			t.Errorf("sentinel lost: %+v", err)
		}
		if msg := err.Error(); msg != "cannot change source state: syncing -> ready" {
			t.Errorf("unmatch: message: %s", msg)
		}
	})
}
