package configs

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts time.ParseDuration expressions in YAML ("30m", "3s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("not a duration: %s", raw)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ServerConfig configures the smithd REST daemon.
type ServerConfig struct {
	ServerPort string `yaml:"port"`
	DBURI      string `yaml:"dburi"`

	// HMAC secret verifying bearer tokens.
	TokenSecret string `yaml:"tokenSecret"`

	// base64-encoded 256-bit key sealing connector credentials.
	CredentialKey string `yaml:"credentialKey"`

	// root directory for uploads, snapshots and dataset files.
	StorageRoot string `yaml:"storage"`

	// directory of versioned schema definitions; empty skips upgrades.
	SchemaRepository string `yaml:"schemaRepository"`
}

// WorkerConfig configures the smithw background daemon.
type WorkerConfig struct {
	DBURI         string `yaml:"dburi"`
	CredentialKey string `yaml:"credentialKey"`
	StorageRoot   string `yaml:"storage"`

	// idle sleep between polls of the run and sync queues.
	PollInterval Duration `yaml:"pollInterval"`

	// pause between reconcile passes.
	ReconcileInterval Duration `yaml:"reconcileInterval"`

	// per-run pipeline budget.
	RunTimeout Duration `yaml:"runTimeout"`

	// running runs with a heartbeat older than this are failed by
	// reconcile. Zero defaults to 2x RunTimeout.
	StaleAfter Duration `yaml:"staleAfter"`
}

const (
	defaultPollInterval      = 3 * time.Second
	defaultReconcileInterval = 1 * time.Minute
	defaultRunTimeout        = 30 * time.Minute
)

func LoadServerConfig(filepath string) (*ServerConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	var out ServerConfig
	if err := yaml.Unmarshal(content, &out); err != nil {
		return nil, err
	}
	if out.ServerPort == "" {
		out.ServerPort = "8080"
	}
	return &out, nil
}

func LoadWorkerConfig(filepath string) (*WorkerConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	var out WorkerConfig
	if err := yaml.Unmarshal(content, &out); err != nil {
		return nil, err
	}
	if out.PollInterval == 0 {
		out.PollInterval = Duration(defaultPollInterval)
	}
	if out.ReconcileInterval == 0 {
		out.ReconcileInterval = Duration(defaultReconcileInterval)
	}
	if out.RunTimeout == 0 {
		out.RunTimeout = Duration(defaultRunTimeout)
	}
	if out.StaleAfter == 0 {
		out.StaleAfter = 2 * out.RunTimeout
	}
	return &out, nil
}
