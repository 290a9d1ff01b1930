package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Directive metrics
	DirectivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netguard_directives_total",
			Help: "Directives executed by action and final status",
		},
		[]string{"action", "status"},
	)

	// Security metrics
	SafetyDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netguard_safety_denied_total",
			Help: "Mutations refused by the safety gate",
		},
		[]string{"reason"},
	)
	ImpactAbortedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netguard_impact_aborted_total",
			Help: "Blocks aborted because the target looked active",
		},
	)
	SafeMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netguard_safe_mode",
			Help: "1 when Safe Mode is on",
		},
	)

	// Backend metrics
	BackendErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netguard_backend_errors_total",
			Help: "Failed packet filter invocations",
		},
	)

	// Rules metrics
	BlockedEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netguard_blocked_entries",
			Help: "Currently blocked targets by kind",
		},
		[]string{"kind"},
	)

	// Rollback metrics
	RollbackCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netguard_rollback_commands_total",
			Help: "Inverse commands replayed by result",
		},
		[]string{"result"},
	)
)

// ObserveDirective counts one finished directive.
// ObserveDirective 统计一个已完成的指令。
func ObserveDirective(action, status string) {
	DirectivesTotal.WithLabelValues(action, status).Inc()
}

// SetSafeMode mirrors the Safe Mode flag.
// SetSafeMode 同步安全模式标志。
func SetSafeMode(on bool) {
	if on {
		SafeMode.Set(1)
		return
	}
	SafeMode.Set(0)
}

// SetBlockedCounts replaces the blocked-entry gauge.
// SetBlockedCounts 更新封禁条目计量。
func SetBlockedCounts(byKind map[string]int) {
	BlockedEntries.Reset()
	for kind, n := range byKind {
		BlockedEntries.WithLabelValues(kind).Set(float64(n))
	}
}

// ObserveRollback counts replayed inverse commands.
// ObserveRollback 统计回放的逆命令。
func ObserveRollback(applied, failed int) {
	RollbackCommandsTotal.WithLabelValues("applied").Add(float64(applied))
	RollbackCommandsTotal.WithLabelValues("failed").Add(float64(failed))
}
