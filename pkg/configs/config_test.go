package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/datasmith-io/datasmith/pkg/configs"
	"github.com/datasmith-io/datasmith/pkg/utils/try"
)

func TestLoadServerConfig(t *testing.T) {
	t.Run("it can be created from a config file", func(t *testing.T) {
		result := try.To(configs.LoadServerConfig("./testdata/server.yaml")).OrFatal(t)

		expectedURI := "postgres://datasmith-pgdb-svc:5432/datasmith"
		if result.DBURI != expectedURI {
			t.Errorf("unmatch dburi:%s, expected:%s", result.DBURI, expectedURI)
		}
		if result.ServerPort != "8080" {
			t.Errorf("unmatch port:%s, expected:8080", result.ServerPort)
		}
		if result.TokenSecret != "test-hmac-secret" {
			t.Errorf("unmatch tokenSecret:%s", result.TokenSecret)
		}
		if result.StorageRoot != "/data/datasmith" {
			t.Errorf("unmatch storage:%s", result.StorageRoot)
		}
		if result.SchemaRepository != "/opt/datasmith/schema" {
			t.Errorf("unmatch schemaRepository:%s", result.SchemaRepository)
		}
	})

	t.Run("port defaults when omitted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(`dburi: "postgres://db/x"`), 0o644); err != nil {
			t.Fatal(err)
		}
		result := try.To(configs.LoadServerConfig(path)).OrFatal(t)
		if result.ServerPort != "8080" {
			t.Errorf("unmatch port:%s, expected:8080", result.ServerPort)
		}
	})

	t.Run("a missing file is an error", func(t *testing.T) {
		if _, err := configs.LoadServerConfig("./testdata/no-such.yaml"); err == nil {
			t.Error("missing file accepted")
		}
	})
}

func TestLoadWorkerConfig(t *testing.T) {
	t.Run("durations parse and defaults fill the rest", func(t *testing.T) {
		result := try.To(configs.LoadWorkerConfig("./testdata/worker.yaml")).OrFatal(t)

		if result.PollInterval.Duration() != 5*time.Second {
			t.Errorf("unmatch pollInterval:%s", result.PollInterval.Duration())
		}
		if result.RunTimeout.Duration() != 10*time.Minute {
			t.Errorf("unmatch runTimeout:%s", result.RunTimeout.Duration())
		}
		if result.ReconcileInterval.Duration() != time.Minute {
			t.Errorf("default reconcileInterval not applied: %s", result.ReconcileInterval.Duration())
		}
		if result.StaleAfter.Duration() != 20*time.Minute {
			t.Errorf("staleAfter should default to 2x runTimeout: %s", result.StaleAfter.Duration())
		}
	})

	t.Run("a broken duration is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("pollInterval: \"soon\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := configs.LoadWorkerConfig(path); err == nil {
			t.Error("broken duration accepted")
		}
	})
}
