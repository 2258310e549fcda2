package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// DevServersTotal tracks the current number of DevServers by phase.
	DevServersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devserver_total",
			Help: "Total number of DevServer objects by phase",
		},
		[]string{"phase", "namespace"},
	)

	// DevServersByOwner tracks DevServers per owner identity.
	DevServersByOwner = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devserver_by_owner",
			Help: "Number of DevServers by owner",
		},
		[]string{"owner", "namespace"},
	)

	// DevServersByFlavor tracks DevServers per resolved flavor.
	DevServersByFlavor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devserver_by_flavor",
			Help: "Number of DevServers by flavor",
		},
		[]string{"flavor", "namespace"},
	)

	// DevServerReconciliations tracks reconciliation count and outcome.
	DevServerReconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_reconciliations_total",
			Help: "Total number of DevServer reconciliations",
		},
		[]string{"namespace", "result"},
	)

	// DevServerReconciliationDuration tracks reconciliation latency.
	DevServerReconciliationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devserver_reconciliation_duration_seconds",
			Help:    "Duration of DevServer reconciliations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"namespace"},
	)

	// FlavorValidations tracks DevServerFlavor validation results.
	FlavorValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_flavor_validations_total",
			Help: "Total number of DevServerFlavor validations",
		},
		[]string{"result"},
	)

	// FlavorResolutionFailures tracks missing-flavor preconditions observed
	// by the DevServer reconciler (distinct from FlavorValidations, which
	// is recorded by the Flavor reconciler against the flavor itself).
	FlavorResolutionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_flavor_resolution_failures_total",
			Help: "Total number of DevServer reconciles that could not resolve their flavor",
		},
		[]string{"namespace", "flavor"},
	)

	// ExpirationsTotal tracks DevServers deleted due to TTL/expiration.
	ExpirationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_expirations_total",
			Help: "Total number of DevServers deleted due to expirationTime",
		},
		[]string{"namespace"},
	)

	// AutoShutdownAmbiguous tracks the Degraded condition raised when both
	// autoShutdown and idleTimeout are set without a defined transition.
	AutoShutdownAmbiguous = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_autoshutdown_ambiguous_total",
			Help: "Total number of DevServers flagged Degraded for autoShutdown/idleTimeout ambiguity",
		},
		[]string{"namespace"},
	)

	// IdleDuration tracks observed idle duration per DevServer.
	IdleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devserver_idle_duration_seconds",
			Help:    "Observed idle duration of DevServers in seconds",
			Buckets: []float64{60, 300, 600, 1800, 3600, 7200},
		},
		[]string{"namespace"},
	)

	// UserProvisioningDuration tracks how long DevServerUser provisioning
	// (namespace + RBAC + quota) takes end to end.
	UserProvisioningDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devserver_user_provisioning_duration_seconds",
			Help:    "Duration of DevServerUser provisioning in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"username"},
	)

	// UserReconciliations tracks DevServerUser reconciliation outcomes.
	UserReconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_user_reconciliations_total",
			Help: "Total number of DevServerUser reconciliations",
		},
		[]string{"result"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		DevServersTotal,
		DevServersByOwner,
		DevServersByFlavor,
		DevServerReconciliations,
		DevServerReconciliationDuration,
		FlavorValidations,
		FlavorResolutionFailures,
		ExpirationsTotal,
		AutoShutdownAmbiguous,
		IdleDuration,
		UserProvisioningDuration,
		UserReconciliations,
	)
}

// RecordDevServerPhase records the current phase of a single DevServer.
func RecordDevServerPhase(phase, namespace string, count float64) {
	DevServersTotal.WithLabelValues(phase, namespace).Set(count)
}

// RecordDevServerByOwner records DevServers for an owner.
func RecordDevServerByOwner(owner, namespace string, count float64) {
	DevServersByOwner.WithLabelValues(owner, namespace).Set(count)
}

// RecordDevServerByFlavor records DevServers for a flavor.
func RecordDevServerByFlavor(flavor, namespace string, count float64) {
	DevServersByFlavor.WithLabelValues(flavor, namespace).Set(count)
}

// RecordReconciliation records a DevServer reconciliation event.
func RecordReconciliation(namespace, result string) {
	DevServerReconciliations.WithLabelValues(namespace, result).Inc()
}

// ObserveReconciliationDuration records DevServer reconciliation duration.
func ObserveReconciliationDuration(namespace string, duration float64) {
	DevServerReconciliationDuration.WithLabelValues(namespace).Observe(duration)
}

// RecordFlavorValidation records a DevServerFlavor validation outcome.
func RecordFlavorValidation(result string) {
	FlavorValidations.WithLabelValues(result).Inc()
}

// RecordFlavorResolutionFailure records a missing-flavor precondition.
func RecordFlavorResolutionFailure(namespace, flavor string) {
	FlavorResolutionFailures.WithLabelValues(namespace, flavor).Inc()
}

// RecordExpiration records a TTL/expiration-triggered deletion.
func RecordExpiration(namespace string) {
	ExpirationsTotal.WithLabelValues(namespace).Inc()
}

// RecordAutoShutdownAmbiguous records the Degraded autoShutdown ambiguity.
func RecordAutoShutdownAmbiguous(namespace string) {
	AutoShutdownAmbiguous.WithLabelValues(namespace).Inc()
}

// ObserveIdleDuration records observed idle duration.
func ObserveIdleDuration(namespace string, duration float64) {
	IdleDuration.WithLabelValues(namespace).Observe(duration)
}

// ObserveUserProvisioningDuration records DevServerUser provisioning latency.
func ObserveUserProvisioningDuration(username string, duration float64) {
	UserProvisioningDuration.WithLabelValues(username).Observe(duration)
}

// RecordUserReconciliation records a DevServerUser reconciliation outcome.
func RecordUserReconciliation(result string) {
	UserReconciliations.WithLabelValues(result).Inc()
}
