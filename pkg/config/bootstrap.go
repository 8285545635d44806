package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"

	"github.com/cuemby/dd214pipeline/pkg/audit"
	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/cluster"
	"github.com/cuemby/dd214pipeline/pkg/control"
	"github.com/cuemby/dd214pipeline/pkg/events"
	"github.com/cuemby/dd214pipeline/pkg/health"
	"github.com/cuemby/dd214pipeline/pkg/ingress"
	"github.com/cuemby/dd214pipeline/pkg/insights"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/metrics"
	"github.com/cuemby/dd214pipeline/pkg/ocr"
	"github.com/cuemby/dd214pipeline/pkg/orchestrator"
	"github.com/cuemby/dd214pipeline/pkg/pii"
	"github.com/cuemby/dd214pipeline/pkg/redact"
	"github.com/cuemby/dd214pipeline/pkg/security"
	"github.com/cuemby/dd214pipeline/pkg/storage"
	"github.com/cuemby/dd214pipeline/pkg/validation"
)

// App holds every long-lived component a worker process wires at
// startup and needs to reach again at shutdown.
type App struct {
	Config *Config

	Store    storage.Store
	Blob     *blob.Store
	Broker   *events.Broker
	Elector  *cluster.Elector
	Audit    audit.Sink
	Executor *orchestrator.Executor
	Trigger  *ingress.Trigger
	Metrics  *metrics.Collector
	Control  *control.Surface

	redisClient *redis.Client
}

// Bootstrap wires every component named in cfg into a running App:
// secrets, blob store, record store (optionally cache-wrapped), event
// broker, cluster elector, audit sink, every orchestrator stage
// adapter, the orchestrator itself, and the ingress trigger. It does
// not start any background loop; call Start once the returned App is
// ready.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	log.Init(log.Config{Level: log.Level(cfg.Log.Level), JSONOutput: cfg.Log.JSONOutput})

	secrets, err := newSecretsManager(cfg.Security)
	if err != nil {
		return nil, orchestrator.ConfigError(fmt.Errorf("building secrets manager: %w", err))
	}

	broker := events.NewBroker()

	blobStore, err := blob.NewStore(cfg.Blob.RootDir, secrets, broker)
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	baseStore, err := storage.NewBoltStoreWithBucket(cfg.Record.Backend.Path, cfg.Record.TableName)
	if err != nil {
		return nil, fmt.Errorf("opening record store: %w", err)
	}

	var recordStore storage.Store = baseStore
	var redisClient *redis.Client
	var dedupLock ingress.DedupLock = ingress.NewInProcessLock()
	if cfg.Record.Cache.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Record.Cache.RedisAddr})
		recordStore = storage.NewCachedStore(baseStore, redisClient)
		dedupLock = ingress.NewRedisLock(redisClient)
	}

	var elector *cluster.Elector
	if cfg.Cluster.NodeID != "" {
		elector, err = cluster.NewElector(cluster.Config{
			NodeID:   cfg.Cluster.NodeID,
			BindAddr: cfg.Cluster.BindAddr,
			DataDir:  cfg.Cluster.DataDir,
		})
		if err != nil {
			return nil, fmt.Errorf("building cluster elector: %w", err)
		}
		if err := startCluster(elector, cfg.Cluster); err != nil {
			return nil, fmt.Errorf("starting cluster elector: %w", err)
		}
	}

	auditSink, err := newAuditSink(ctx, cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("building audit sink: %w", err)
	}

	validationStage := validation.New(0)

	ocrTransport := ocr.NewHTTPTransport(cfg.OCR.BaseURL, cfg.OCR.APIKey)
	ocrStage := ocr.NewAdapter(ocrTransport, blobStore, breakerTimeout(cfg.OCR.Breaker))

	var classifier pii.Classifier
	if cfg.PII.ClassifierEnabled {
		classifier = pii.NewHTTPClassifier(cfg.PII.ClassifierBaseURL, cfg.PII.ClassifierAPIKey)
	}
	piiStage := pii.NewDetector(blobStore, classifier, breakerTimeout(cfg.PII.Breaker))
	if cfg.PII.ClassifierTimeoutSeconds > 0 {
		piiStage = piiStage.WithClassifierWait(time.Duration(cfg.PII.ClassifierTimeoutSeconds) * time.Second)
	}

	redactionStage := redact.NewRedactor(blobStore)

	insightsTransport, err := newInsightsTransport(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("building insights transport: %w", err)
	}
	insightsStage := insights.NewGenerator(insightsTransport, blobStore, cfg.LLM.ModelID, cfg.LLM.ModelVersion, breakerTimeout(cfg.LLM.Breaker))

	execCfg := orchestrator.DefaultConfig()
	execCfg.OCRPollInterval = time.Duration(cfg.Orchestrator.PollIntervalSeconds) * time.Second
	execCfg.OCRPollCeiling = time.Duration(cfg.Orchestrator.OCRPendingCeilingSeconds) * time.Second
	execCfg.ExecutionBudget = time.Duration(cfg.Orchestrator.ExecutionBudgetSeconds) * time.Second

	executor := orchestrator.NewExecutor(
		recordStore, broker, elector, auditSink,
		validationStage, ocrStage, piiStage, redactionStage, insightsStage,
		execCfg,
	)

	trigger := ingress.NewTrigger(broker, recordStore, dedupLock, executor)

	collector := metrics.NewCollector(recordStore, leaderStatusOf(elector))

	controlSurface := control.New(recordStore, blobStore, cfg.Blob.OriginalsBucket, cfg.Retention.TTLDays)

	return &App{
		Config:      cfg,
		Store:       recordStore,
		Blob:        blobStore,
		Broker:      broker,
		Elector:     elector,
		Audit:       auditSink,
		Executor:    executor,
		Trigger:     trigger,
		Metrics:     collector,
		Control:     controlSurface,
		redisClient: redisClient,
	}, nil
}

// leaderStatusOf adapts a possibly-nil *cluster.Elector to
// metrics.LeaderStatus: a nil Elector must stay a nil interface value,
// not a non-nil interface wrapping a nil pointer, or metrics.Collector's
// own nil check would never trigger.
func leaderStatusOf(elector *cluster.Elector) metrics.LeaderStatus {
	if elector == nil {
		return nil
	}
	return elector
}

func breakerTimeout(cfg BreakerConfig) time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

func newSecretsManager(cfg SecurityConfig) (*security.SecretsManager, error) {
	if cfg.EncryptionKeyBase64 != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKeyBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding encryption_key_base64: %w", err)
		}
		return security.NewSecretsManager(key)
	}
	return security.NewSecretsManagerFromPassword(cfg.EncryptionPassword)
}

func newAuditSink(ctx context.Context, cfg AuditConfig) (audit.Sink, error) {
	if cfg.PostgresDSN == "" {
		return audit.NoopSink{}, nil
	}
	return audit.NewPostgresSink(ctx, cfg.PostgresDSN)
}

func newInsightsTransport(ctx context.Context, cfg LLMConfig) (insights.Transport, error) {
	switch cfg.Transport {
	case "anthropic":
		return insights.NewAnthropicTransport(cfg.AnthropicAPIKey), nil
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		return insights.NewBedrockTransport(bedrockruntime.NewFromConfig(awsCfg)), nil
	default:
		return nil, fmt.Errorf("unknown llm.transport %q", cfg.Transport)
	}
}

func startCluster(elector *cluster.Elector, cfg ClusterConfig) error {
	if cfg.Bootstrap {
		peers := make([]cluster.Peer, 0, len(cfg.Peers))
		for _, p := range cfg.Peers {
			nodeID, addr, ok := strings.Cut(p, "@")
			if !ok {
				return fmt.Errorf("malformed cluster peer %q, expected node_id@addr", p)
			}
			peers = append(peers, cluster.Peer{NodeID: nodeID, Addr: addr})
		}
		return elector.Bootstrap(peers)
	}
	return elector.Join()
}

// ReadinessCheckers returns one health.Checker per external dependency
// this configuration wires, for a readiness probe to poll at startup.
func (a *App) ReadinessCheckers() []health.Checker {
	var checkers []health.Checker
	if a.Config.Record.Cache.RedisAddr != "" {
		checkers = append(checkers, health.NewTCPChecker(a.Config.Record.Cache.RedisAddr))
	}
	return checkers
}

// Start begins every background loop: the event broker, the ingress
// trigger, the metrics collector, and the orchestrator's TTL sweep. The
// sweep interval comes from orchestrator.Config; retention.ttl_days
// instead governs the TTL stamped onto each record at creation time, in
// the control surface that provisions uploads.
func (a *App) Start(_ context.Context) {
	a.Broker.Start()
	a.Trigger.Start()
	a.Metrics.Start()
	a.Executor.StartTTLSweeper()
}

// Shutdown stops every background loop and releases held connections,
// in reverse order of Start.
func (a *App) Shutdown() {
	a.Executor.StopTTLSweeper()
	a.Metrics.Stop()
	a.Trigger.Stop()
	a.Broker.Stop()
	if closer, ok := a.Audit.(interface{ Close() }); ok {
		closer.Close()
	}
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	if a.Elector != nil {
		a.Elector.Shutdown()
	}
	a.Store.Close()
}
