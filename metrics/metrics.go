// Package metrics exposes Prometheus collectors for handled errors, store
// actions and storage operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmgilman/go/statekit/errors"
	"github.com/jmgilman/go/statekit/storage"
	"github.com/jmgilman/go/statekit/store"
)

const namespace = "statekit"

// Collector records metrics for the observer hooks of the errors, store and
// storage packages. Pass it as the observer of each component.
type Collector struct {
	errorsTotal       *prometheus.CounterVec
	actionsTotal      *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
	actionDuration    *prometheus.HistogramVec
	storageOperations *prometheus.CounterVec
}

var (
	_ errors.Observer  = (*Collector)(nil)
	_ store.Observer   = (*Collector)(nil)
	_ storage.Observer = (*Collector)(nil)
)

// New creates a Collector and registers its metrics with reg.
// A nil reg leaves the metrics unregistered.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		// errorsTotal tracks every error passing through a handler
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of handled errors",
			},
			[]string{"code", "severity"},
		),

		// actionsTotal tracks completed store actions
		actionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_actions_total",
				Help:      "Total number of completed store actions",
			},
			[]string{"store", "outcome"},
		),

		retriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_retries_total",
				Help:      "Total number of store action retries",
			},
			[]string{"store"},
		),

		actionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_action_duration_seconds",
				Help:      "Store action duration in seconds, retries included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"store"},
		),

		storageOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "result"},
		),
	}
}

// ErrorHandled implements errors.Observer.
func (c *Collector) ErrorHandled(err errors.AppError, _ errors.ErrorContext) {
	c.errorsTotal.WithLabelValues(string(err.Code()), string(err.Severity())).Inc()
}

// ActionCompleted implements store.Observer.
func (c *Collector) ActionCompleted(storeName, outcome string, elapsed time.Duration) {
	c.actionsTotal.WithLabelValues(storeName, outcome).Inc()
	c.actionDuration.WithLabelValues(storeName).Observe(elapsed.Seconds())
}

// ActionRetried implements store.Observer.
func (c *Collector) ActionRetried(storeName string, _ int) {
	c.retriesTotal.WithLabelValues(storeName).Inc()
}

// StorageOperation implements storage.Observer.
func (c *Collector) StorageOperation(operation, result string) {
	c.storageOperations.WithLabelValues(operation, result).Inc()
}

// Handler returns an HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
