// Package config loads and validates the typed configuration every
// dd214pipeline worker process starts from: YAML on disk, validated
// with go-playground/validator/v10 before anything downstream is wired.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/orchestrator"
)

// BlobConfig configures the filesystem-backed, encrypted blob store.
type BlobConfig struct {
	RootDir         string `yaml:"root_dir" validate:"required"`
	OriginalsBucket string `yaml:"originals_bucket" validate:"required"`
	RedactedBucket  string `yaml:"redacted_bucket" validate:"required"`
}

// RecordBackendConfig configures the bbolt-backed record store.
type RecordBackendConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// RecordCacheConfig configures the optional Redis read-through cache
// and distributed dedup lock. An empty RedisAddr disables both: the
// record store runs uncached and the ingress trigger falls back to an
// in-process lock.
type RecordCacheConfig struct {
	RedisAddr string `yaml:"redis_addr"`
}

// RecordConfig configures the Record Store.
type RecordConfig struct {
	TableName string              `yaml:"table_name" validate:"required"`
	Backend   RecordBackendConfig `yaml:"backend"`
	Cache     RecordCacheConfig   `yaml:"cache"`
}

// OrchestratorConfig configures the executor's polling and budget
// tuning. Zero values fall back to orchestrator.DefaultConfig().
type OrchestratorConfig struct {
	PollIntervalSeconds      int `yaml:"poll_interval_seconds"`
	OCRPendingCeilingSeconds int `yaml:"ocr_pending_ceiling_seconds"`
	ExecutionBudgetSeconds   int `yaml:"execution_budget_seconds"`
}

// BreakerConfig configures one gobreaker.CircuitBreaker's reset timeout
// for an external dependency. MaxRequests and the consecutive-failure
// trip threshold are fixed by each package's own constructor.
type BreakerConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// OCRConfig configures the OCR adapter and its HTTP transport.
type OCRConfig struct {
	BaseURL  string        `yaml:"base_url" validate:"required"`
	APIKey   string        `yaml:"api_key"`
	MaxPages int           `yaml:"max_pages"`
	Breaker  BreakerConfig `yaml:"breaker"`
}

// LLMConfig configures the insight generator's transport and model
// parameters.
type LLMConfig struct {
	Transport       string        `yaml:"transport" validate:"required,oneof=anthropic bedrock"`
	ModelID         string        `yaml:"model_id" validate:"required"`
	ModelVersion    string        `yaml:"model_version"`
	Temperature     float64       `yaml:"temperature"`
	TopP            float64       `yaml:"top_p"`
	MaxTokens       int           `yaml:"max_tokens"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	Breaker         BreakerConfig `yaml:"breaker"`
}

// PIIConfig configures the optional external classifier signal.
type PIIConfig struct {
	ClassifierEnabled        bool          `yaml:"classifier_enabled"`
	ClassifierTimeoutSeconds int           `yaml:"classifier_timeout_seconds"`
	ClassifierBaseURL        string        `yaml:"classifier_base_url"`
	ClassifierAPIKey         string        `yaml:"classifier_api_key"`
	Breaker                  BreakerConfig `yaml:"breaker"`
}

// RetentionConfig configures record retention: TTLDays is stamped onto
// each new record's TTL. How often the sweep runs is set separately, by
// orchestrator.Config.TTLSweepInterval.
type RetentionConfig struct {
	TTLDays int `yaml:"ttl_days"`
}

// AuditConfig configures the optional Postgres audit sink. An empty
// PostgresDSN disables the audit trail entirely.
type AuditConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ClusterConfig configures the Raft-backed leader elector used by
// multi-process deployments to serialize the TTL sweep. An empty NodeID
// selects a single-process deployment with no elector at all.
type ClusterConfig struct {
	NodeID    string   `yaml:"node_id"`
	BindAddr  string   `yaml:"bind_addr"`
	DataDir   string   `yaml:"data_dir"`
	Bootstrap bool     `yaml:"bootstrap"`
	Peers     []string `yaml:"peers"`
}

// SecurityConfig configures at-rest encryption for the Blob Store.
// Exactly one of EncryptionKeyBase64 or EncryptionPassword must be set.
type SecurityConfig struct {
	EncryptionKeyBase64 string `yaml:"encryption_key_base64"`
	EncryptionPassword  string `yaml:"encryption_password"`
}

// LogConfig configures the global structured logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	JSONOutput bool   `yaml:"json_output"`
}

// Config is the complete typed configuration for one worker process.
// Fields map to the recognized configuration parameters; see Load for
// defaulting and validation.
type Config struct {
	Blob         BlobConfig         `yaml:"blob"`
	Record       RecordConfig       `yaml:"record"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	OCR          OCRConfig          `yaml:"ocr"`
	LLM          LLMConfig          `yaml:"llm"`
	PII          PIIConfig          `yaml:"pii"`
	Retention    RetentionConfig    `yaml:"retention"`
	Audit        AuditConfig        `yaml:"audit"`
	Cluster      ClusterConfig      `yaml:"cluster"`
	Security     SecurityConfig     `yaml:"security"`
	Log          LogConfig          `yaml:"log"`
}

func applyDefaults(cfg *Config) {
	if cfg.Record.TableName == "" {
		cfg.Record.TableName = "documents"
	}
	if cfg.Orchestrator.PollIntervalSeconds == 0 {
		cfg.Orchestrator.PollIntervalSeconds = 5
	}
	if cfg.Orchestrator.OCRPendingCeilingSeconds == 0 {
		cfg.Orchestrator.OCRPendingCeilingSeconds = 300
	}
	if cfg.Orchestrator.ExecutionBudgetSeconds == 0 {
		cfg.Orchestrator.ExecutionBudgetSeconds = 900
	}
	if cfg.PII.ClassifierTimeoutSeconds == 0 {
		cfg.PII.ClassifierTimeoutSeconds = 120
	}
	if cfg.Retention.TTLDays == 0 {
		cfg.Retention.TTLDays = 90
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Load reads and parses the YAML file at path, applies defaults for
// every parameter that names one, and validates the result. A missing
// required parameter or an unreadable file returns a
// *orchestrator.StageError tagged orchestrator.KindConfigurationError,
// the same fatal-at-startup kind the rest of the pipeline uses for this
// class of failure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, orchestrator.ConfigError(fmt.Errorf("reading config file: %w", err))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, orchestrator.ConfigError(fmt.Errorf("parsing config file: %w", err))
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	if cfg.OCR.MaxPages > 50 {
		// Not an error: the operator has deliberately raised the ceiling,
		// but a page count that high usually means a malformed document.
		fmt.Fprintf(os.Stderr, "warning: ocr.max_pages=%d exceeds the usual 50-page ceiling\n", cfg.OCR.MaxPages)
	}

	return &cfg, nil
}

// Validate runs struct-tag validation and the cross-field checks struct
// tags alone can't express (the security key/password either-or).
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return orchestrator.ConfigError(fmt.Errorf("validating config: %w", err))
	}
	hasKey := cfg.Security.EncryptionKeyBase64 != ""
	hasPassword := cfg.Security.EncryptionPassword != ""
	if hasKey == hasPassword {
		return orchestrator.ConfigError(fmt.Errorf("exactly one of security.encryption_key_base64 or security.encryption_password must be set"))
	}
	if cfg.PII.ClassifierEnabled && cfg.PII.ClassifierBaseURL == "" {
		return orchestrator.ConfigError(fmt.Errorf("pii.classifier_base_url is required when pii.classifier_enabled is true"))
	}
	if cfg.Cluster.NodeID != "" && (cfg.Cluster.BindAddr == "" || cfg.Cluster.DataDir == "") {
		return orchestrator.ConfigError(fmt.Errorf("cluster.bind_addr and cluster.data_dir are required when cluster.node_id is set"))
	}
	// The blob key layout is fixed (see pkg/blob/keys.go): these two
	// parameters exist for configuration-surface parity but must name
	// the same buckets the key layout hard-codes, not arbitrary ones.
	if cfg.Blob.OriginalsBucket != blob.BucketUploads {
		return orchestrator.ConfigError(fmt.Errorf("blob.originals_bucket must be %q", blob.BucketUploads))
	}
	if cfg.Blob.RedactedBucket != blob.BucketRedacted {
		return orchestrator.ConfigError(fmt.Errorf("blob.redacted_bucket must be %q", blob.BucketRedacted))
	}
	return nil
}
