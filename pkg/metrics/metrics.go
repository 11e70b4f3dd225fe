package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Results by cache status (HIT, MISS, STALE, NO_CACHE)
	Results = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stalier_results_total",
			Help: "Total number of results by cache status",
		},
		[]string{"status"},
	)

	StoreLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stalier_store_lookups_total",
			Help: "Total number of store lookups by outcome",
		},
		[]string{"store", "found"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stalier_store_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"operation", "store"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stalier_store_operation_duration_seconds",
			Help:    "Duration of store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "store"},
	)

	// Warnings logged for cache layer failures, including background revalidation
	Warnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stalier_warnings_total",
			Help: "Total number of cache layer warnings",
		},
	)
)

// RecordResult records the status of a result
func RecordResult(status string) {
	Results.WithLabelValues(status).Inc()
}

// RecordStoreLookup records whether a store lookup found an entry
func RecordStoreLookup(store string, found bool) {
	label := "false"
	if found {
		label = "true"
	}
	StoreLookups.WithLabelValues(store, label).Inc()
}

// RecordStoreError records a failed store operation
func RecordStoreError(operation, store string) {
	StoreErrors.WithLabelValues(operation, store).Inc()
}

// RecordWarning records a logged cache layer warning
func RecordWarning() {
	Warnings.Inc()
}

// TimeStoreOperation returns a function to call when the operation is done
func TimeStoreOperation(operation, store string) func() {
	timer := prometheus.NewTimer(StoreOperationDuration.WithLabelValues(operation, store))
	return func() {
		timer.ObserveDuration()
	}
}
