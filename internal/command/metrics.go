// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for command execution metrics.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusRejected    = "rejected" // parse/validation failures
	StatusRateLimited = "rate_limited"
)

// CommandExecutions counts command executions by variant and outcome.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mythosmud_command_executions_total",
		Help: "Total number of command executions",
	},
	[]string{"command", "status"},
)

// CommandDuration tracks command execution duration by variant.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "mythosmud_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command"},
)

// AliasExpansions counts alias expansions by alias name.
var AliasExpansions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mythosmud_alias_expansions_total",
		Help: "Total number of alias expansions",
	},
	[]string{"alias"},
)

// AuditFailures counts audit sink append failures.
var AuditFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "mythosmud_audit_failures_total",
		Help: "Total number of audit sink append failures",
	},
)

// RegisterMetrics registers command pipeline metrics with the registry.
// Must be called once at startup; panics on duplicate registration,
// following prometheus convention.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
	reg.MustRegister(AliasExpansions)
	reg.MustRegister(AuditFailures)
}

// RecordCommandExecution increments the execution counter.
func RecordCommandExecution(command, status string) {
	CommandExecutions.WithLabelValues(command, status).Inc()
}

// RecordCommandDuration records how long a handler ran.
func RecordCommandDuration(command string, duration time.Duration) {
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordAliasExpansion increments the alias expansion counter.
func RecordAliasExpansion(alias string) {
	AliasExpansions.WithLabelValues(alias).Inc()
}

// RecordAuditFailure increments the audit failure counter.
func RecordAuditFailure() {
	AuditFailures.Inc()
}
