package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
blob:
  root_dir: /var/lib/dd214pipeline/blobs
  originals_bucket: uploads
  redacted_bucket: redacted
record:
  table_name: documents
  backend:
    path: /var/lib/dd214pipeline
ocr:
  base_url: https://ocr.internal
llm:
  transport: anthropic
  model_id: claude-3-5-sonnet
  anthropic_api_key: test-key
security:
  encryption_password: correct-horse-battery-staple
`

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	path := writeConfigFile(t, validYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "documents", cfg.Record.TableName)
	assert.Equal(t, 5, cfg.Orchestrator.PollIntervalSeconds)
	assert.Equal(t, 300, cfg.Orchestrator.OCRPendingCeilingSeconds)
	assert.Equal(t, 900, cfg.Orchestrator.ExecutionBudgetSeconds)
	assert.Equal(t, 120, cfg.PII.ClassifierTimeoutSeconds)
	assert.Equal(t, 90, cfg.Retention.TTLDays)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFileReturnsConfigurationError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadAcceptsExplicitOverrides(t *testing.T) {
	path := writeConfigFile(t, validYAML+"\norchestrator:\n  poll_interval_seconds: 2\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Orchestrator.PollIntervalSeconds)
}

func TestValidateRequiresExactlyOneSecuritySecret(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name: "neither key nor password set",
			mutate: func(cfg *Config) {
				cfg.Security.EncryptionPassword = ""
				cfg.Security.EncryptionKeyBase64 = ""
			},
			wantErr: true,
		},
		{
			name: "both key and password set",
			mutate: func(cfg *Config) {
				cfg.Security.EncryptionKeyBase64 = "c2VjcmV0a2V5c2VjcmV0a2V5c2VjcmV0a2V5MTI="
			},
			wantErr: true,
		},
		{
			name:    "only password set",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseValidConfig(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRequiresClassifierBaseURLWhenEnabled(t *testing.T) {
	cfg := baseValidConfig(t)
	cfg.PII.ClassifierEnabled = true
	cfg.PII.ClassifierBaseURL = ""

	err := Validate(cfg)
	assert.Error(t, err)

	cfg.PII.ClassifierBaseURL = "https://classifier.internal"
	assert.NoError(t, Validate(cfg))
}

func TestValidateRequiresClusterAddrAndDataDirWhenNodeIDSet(t *testing.T) {
	cfg := baseValidConfig(t)
	cfg.Cluster.NodeID = "node-1"

	err := Validate(cfg)
	assert.Error(t, err)

	cfg.Cluster.BindAddr = "127.0.0.1:7000"
	cfg.Cluster.DataDir = t.TempDir()
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsMismatchedBlobBucketNames(t *testing.T) {
	cfg := baseValidConfig(t)
	cfg.Blob.OriginalsBucket = "not-uploads"

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	cfg := baseValidConfig(t)
	cfg.OCR.BaseURL = ""

	err := Validate(cfg)
	assert.Error(t, err)
}

func baseValidConfig(t *testing.T) *Config {
	t.Helper()
	path := writeConfigFile(t, validYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	return cfg
}
