package metrics

import "github.com/prometheus/client_golang/prometheus"

// Operational metrics
var (
	FindingsReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_findings_reconciled_total",
			Help: "Findings folded into registry and ledger state",
		},
		[]string{"outcome"},
	)

	CaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalation_case_transitions_total",
			Help: "Escalation actions applied to liability cases",
		},
		[]string{"action"},
	)

	OpenCases = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "escalation_open_cases",
			Help: "Unresolved outstanding cases",
		},
	)

	MaintenanceSpawned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "maintenance_tickets_spawned_total",
			Help: "Repair tickets created from damaged findings and recoveries",
		},
	)

	AuditSessionsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_sessions_finalized_total",
			Help: "Audit sessions successfully finalized",
		},
	)

	LapsedGraceCases = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "escalation_lapsed_grace_cases",
			Help: "Live cases whose grace period has expired without recovery",
		},
	)
)

// NewRegistry returns a registry with every collector registered.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		FindingsReconciled,
		CaseTransitions,
		OpenCases,
		MaintenanceSpawned,
		AuditSessionsFinalized,
		LapsedGraceCases,
	)
	return registry
}
