package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	pendingOperations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smartstock",
			Name:      "pending_operations",
			Help:      "Operations waiting for remote confirmation.",
		},
	)

	operationsQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartstock",
			Name:      "operations_queued_total",
			Help:      "Operations accepted into the offline queue.",
		},
		[]string{"type"},
	)

	operationsSynced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smartstock",
			Name:      "operations_synced_total",
			Help:      "Operations confirmed by the remote system.",
		},
	)

	operationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smartstock",
			Name:      "operations_failed_total",
			Help:      "Submission attempts rejected or lost in transit.",
		},
	)

	syncPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartstock",
			Name:      "sync_passes_total",
			Help:      "Completed sync passes by outcome.",
		},
		[]string{"result"},
	)

	submissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "smartstock",
			Name:      "submission_duration_seconds",
			Help:      "Time spent submitting one operation to the remote system.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartstock",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	connectivityState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smartstock",
			Name:      "remote_reachable",
			Help:      "1 when the remote system is reachable, 0 otherwise.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			pendingOperations,
			operationsQueued,
			operationsSynced,
			operationsFailed,
			syncPasses,
			submissionDuration,
			httpRequests,
			connectivityState,
		)
	})
}

// SetPendingOperations records the current queue depth.
func SetPendingOperations(n int) {
	pendingOperations.Set(float64(n))
}

// IncQueued counts one accepted operation by type.
func IncQueued(opType string) {
	operationsQueued.WithLabelValues(opType).Inc()
}

// IncSynced counts one confirmed operation.
func IncSynced() {
	operationsSynced.Inc()
}

// IncFailed counts one failed submission attempt.
func IncFailed() {
	operationsFailed.Inc()
}

// IncSyncPass counts a completed pass with an outcome label such as
// "clean" or "partial".
func IncSyncPass(result string) {
	syncPasses.WithLabelValues(result).Inc()
}

// ObserveSubmission records the duration of one submission attempt.
func ObserveSubmission(d time.Duration) {
	submissionDuration.Observe(d.Seconds())
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// SetOnline records the connectivity state.
func SetOnline(online bool) {
	if online {
		connectivityState.Set(1)
	} else {
		connectivityState.Set(0)
	}
}
