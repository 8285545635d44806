/*
Package health provides health check mechanisms for monitoring the
pipeline's external dependencies at startup and during readiness probes.

This package implements three types of health checks: HTTP, TCP, and
Exec. config.App.ReadinessCheckers builds the checkers for a wired
process: one TCPChecker for the Redis address when a record cache is
configured. It builds no checker for the OCR, LLM, classifier or audit
Postgres endpoints, and the serve command does not call it.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                   Health Check System                       │
	└─────┬──────────────────────────────────────────────────────┘
	      │
	      ▼
	┌──────────────────────────────────────────────────────────────┐
	│                     Checker Interface                        │
	│  • Check(ctx) Result                                         │
	│  • Type() CheckType                                          │
	└────────┬─────────────────────────────────────────────────────┘
	         │
	    ┌────┴──────┬──────────┐
	    ▼           ▼          ▼
	┌────────┐  ┌──────┐  ┌────────┐
	│  HTTP  │  │ TCP  │  │  Exec  │
	│Checker │  │Checker│ │Checker │
	└────────┘  └──────┘  └────────┘
	     │          │          │
	     ▼          ▼          ▼
	OCR/LLM     Redis/     Operator-
	endpoints   Postgres   supplied
	                       readiness
	                       scripts

# Core Types

Checker: the common interface every check type implements.

Result: Healthy, Message, CheckedAt, Duration — the outcome of one check.

Config: Interval, Timeout, Retries, StartPeriod — shared tuning knobs;
DefaultConfig() returns sane values for a startup probe.

Status: tracks ConsecutiveFailures/ConsecutiveSuccesses across repeated
checks and flips Healthy only after Retries consecutive failures, so a
single transient blip during startup doesn't abort the process.

# Usage

Checking an HTTP endpoint:

	checker := health.NewHTTPChecker("https://ocr.example.com/health")
	result := checker.Check(ctx)
	if !result.Healthy {
		return fmt.Errorf("ocr dependency unreachable: %s", result.Message)
	}

Checking Redis reachability:

	checker := &health.TCPChecker{Address: cfg.Record.Cache.RedisAddr}
	result := checker.Check(ctx)

Running an operator-supplied readiness script:

	checker := health.NewExecChecker([]string{"/opt/dd214/check-classifier.sh"})
	result := checker.Check(ctx)

# See Also

  - pkg/config for App.ReadinessCheckers, which builds the Redis checker
  - pkg/metrics for the HTTP /health, /ready, /live endpoints this
    process itself exposes to its own callers
*/
package health
