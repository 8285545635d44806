/*
Package log provides structured logging for dd214pipeline using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

dd214pipeline's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("orchestrator")             │          │
	│  │  - WithDocumentID("doc-abc123")              │          │
	│  │  - WithExecutionID("exec-xyz")               │          │
	│  │  - WithStep("ocr")                           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "orchestrator",             │          │
	│  │    "time": "2024-10-13T10:30:00Z",         │          │
	│  │    "message": "step complete"               │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2024-10-13T10:30:00Z INF step complete component=orchestrator │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all dd214pipeline packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithDocumentID: Add document ID context
  - WithExecutionID: Add execution ID context
  - WithStep: Add pipeline step name context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "Polling OCR job: handle=job-42, attempt=3"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "Document uploaded: doc-42 (owner=user-7)"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "Circuit breaker half-open, probing classifier"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "Insight generation failed: model returned malformed JSON"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "Failed to initialize Raft: %v"

# Usage

Initializing the Logger:

	import "github.com/cuemby/dd214pipeline/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/dd214pipeline.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("Cluster initialized successfully")
	log.Debug("Checking node status")
	log.Warn("High memory usage detected")
	log.Error("Failed to poll OCR job")
	log.Fatal("Cannot start without a configured record store") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("document_id", "doc-123").
		Str("step", "ocr").
		Msg("step complete")

	log.Logger.Error().
		Err(err).
		Str("document_id", "doc-123").
		Msg("step failed")

Component Loggers:

	// Create component-specific logger
	orchestratorLog := log.WithComponent("orchestrator")
	orchestratorLog.Info().Msg("execution started")
	orchestratorLog.Debug().Str("document_id", "doc-123").Msg("running step")

	// Multiple context fields
	stepLog := log.WithComponent("ocr").
		With().Str("document_id", "doc-123").
		Str("execution_id", "exec-456").Logger()
	stepLog.Info().Msg("starting job")
	stepLog.Error().Err(err).Msg("job failed")

Context Logger Helpers:

	// Document-specific logs
	docLog := log.WithDocumentID("doc-123")
	docLog.Info().Msg("execution resumed")

	// Execution-specific logs
	execLog := log.WithExecutionID("exec-456")
	execLog.Info().Msg("execution started")

	// Step-specific logs
	stepLog2 := log.WithStep("redaction")
	stepLog2.Info().Msg("step started")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/cuemby/dd214pipeline/pkg/log"
	)

	func main() {
		// Initialize logger
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("dd214pipeline starting")

		// Component-specific logging
		orchestratorLog := log.WithComponent("orchestrator")
		orchestratorLog.Info().
			Str("document_id", "doc-1").
			Int("steps_remaining", 3).
			Msg("execution started")

		// Error logging
		err := errors.New("connection refused")
		log.Logger.Error().
			Err(err).
			Str("component", "ocr").
			Msg("Failed to reach OCR service")

		log.Info("dd214pipeline stopped")
	}

# Integration Points

This package integrates with:

  - pkg/cluster: Logs leader election and Raft events
  - pkg/orchestrator: Logs step execution and retry decisions
  - pkg/ingress: Logs trigger dispatch and dedup lock contention
  - pkg/ocr, pkg/pii, pkg/insights: Log external call failures and
    circuit breaker state changes
  - pkg/storage: Logs cache population and invalidation failures

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"cluster","time":"2024-10-13T10:30:00Z","message":"leader elected"}
	{"level":"info","component":"orchestrator","document_id":"doc-123","time":"2024-10-13T10:30:01Z","message":"step complete"}
	{"level":"error","component":"ocr","document_id":"doc-123","error":"job timed out","time":"2024-10-13T10:30:02Z","message":"ocr poll failed"}

Console Format (Development):

	2024-10-13T10:30:00Z INF leader elected component=cluster
	2024-10-13T10:30:01Z INF step complete component=orchestrator document_id=doc-123
	2024-10-13T10:30:02Z ERR ocr poll failed component=ocr document_id=doc-123 error="job timed out"

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Records the error message in the "error" field (no stack trace)
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Performance Characteristics

Logging Overhead:
  - Disabled level: 0ns (compile-time optimization)
  - JSON encode: ~500ns per log line
  - Console format: ~1µs per log line
  - String field: +50ns per field
  - Int field: +30ns per field

Memory Allocation:
  - Zero allocation for disabled levels
  - ~100 bytes per log line (JSON)
  - ~200 bytes per log line (console)
  - Amortized by buffer pooling

Throughput:
  - JSON: ~2M log lines per second
  - Console: ~1M log lines per second
  - Bottleneck: I/O write speed
  - Async writes recommended for high volume

Log Level Impact:
  - Debug: High volume, use in development only
  - Info: Moderate volume, suitable for production
  - Warn/Error: Low volume, minimal impact
  - Recommendation: Info level in production

# Troubleshooting

Common Issues:

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger in main() before any logging

Excessive Log Volume:
  - Symptom: Disk space fills quickly
  - Cause: Debug level in production
  - Check: Log level configuration
  - Solution: Use Info level in production, rotate logs

Missing Context Fields:
  - Symptom: Logs missing component or ID fields
  - Cause: Using global Logger instead of context logger
  - Solution: Use WithComponent() or create child loggers

Log Parsing Fails:
  - Symptom: Cannot parse JSON logs
  - Cause: Invalid JSON in message field
  - Check: Embedded quotes or control characters
  - Solution: Use .Str() instead of string interpolation

Performance Degradation:
  - Symptom: Slow application performance
  - Cause: Excessive logging in hot path
  - Check: Log statements in tight loops
  - Solution: Reduce log frequency, use sampling

# Log Rotation

File-Based Logging:

dd214pipeline doesn't include built-in log rotation. Use external tools:

Logrotate (Linux):
	# /etc/logrotate.d/dd214pipeline
	/var/log/dd214pipeline/*.log {
	    daily
	    rotate 7
	    compress
	    delaycompress
	    missingok
	    notifempty
	    copytruncate
	}

Systemd Journal:
	# Automatic rotation by systemd
	journalctl -u dd214pipeline -f

Docker/Kubernetes:
	# Use container runtime log drivers
	# JSON logs to stdout (already implemented)

# Log Aggregation

Recommended Tools:

Elasticsearch + Filebeat:
  - Filebeat ships logs to Elasticsearch
  - Kibana for visualization and search
  - Query: component:"orchestrator" AND level:"error"

Loki + Promtail:
  - Lightweight log aggregation
  - Grafana integration
  - Query: {component="orchestrator"} |= "error"

CloudWatch Logs:
  - AWS native log aggregation
  - Metric filters for alerting
  - Query: fields @message | filter component = "orchestrator"

Datadog:
  - Full-stack observability
  - APM and log correlation
  - Query: service:dd214pipeline component:orchestrator status:error

# Monitoring

Log-Based Alerts:

High Error Rate:
  - Query: rate(log entries with level="error"[5m]) > 10
  - Description: More than 10 errors per second
  - Action: Check recent errors, investigate root cause

No Logs:
  - Query: absent(log entries[1m])
  - Description: No logs received in 1 minute
  - Action: Check dd214pipeline process, log pipeline

Specific Error Pattern:
  - Query: log entries containing "circuit breaker open"
  - Description: An external dependency (OCR, PII classifier, LLM) is failing repeatedly
  - Action: Check the upstream service's status and the breaker's configured timeout

# Security

Log Content:
  - Never log secrets or sensitive data
  - Redact tokens, passwords, API keys
  - Use log scrubbing for compliance (GDPR, PCI)
  - Review logs before sharing externally

Log Access:
  - Restrict log file permissions (0640)
  - Limit log aggregation access (RBAC)
  - Audit log access in production
  - Encrypt logs at rest and in transit

Log Injection:
  - Use structured logging (prevents injection)
  - Never concatenate user input into log messages
  - Use typed fields (.Str, .Int) for user data
  - Validate/sanitize before logging if necessary

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() so they land in the "error" field
  - Include context (node ID, service ID, task ID)

Don't:
  - Log sensitive data (secrets, passwords)
  - Use Debug level in production
  - Log in tight loops (use sampling)
  - Concatenate strings (use .Str, .Int)
  - Block on log writes (use buffered output)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
  - 12-Factor App Logs: https://12factor.net/logs
  - Log aggregation: https://www.elastic.co/what-is/log-aggregation
*/
package log
