package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "walletlink"

// Metrics holds the Prometheus collectors. A nil *Metrics is valid and
// records nothing, which keeps tests and library use free of registries.
type Metrics struct {
	registry *prometheus.Registry

	batchesFlushed   prometheus.Counter
	batchSize        prometheus.Histogram
	batchFailures    *prometheus.CounterVec
	deepLinkRequests *prometheus.CounterVec
	correlations     *prometheus.CounterVec
	broadcasts       prometheus.Counter
	feedClients      prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		batchesFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_flushed_total",
			Help:      "Number of JSON-RPC batches sent upstream.",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of calls per flushed batch.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		batchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Batches rejected as a whole, by reason.",
		}, []string{"reason"}),
		deepLinkRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deeplink_requests_total",
			Help:      "Deep-link requests handed to the wallet, by kind.",
		}, []string{"kind"}),
		correlations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlations_total",
			Help:      "Finished correlation waits, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_broadcast_total",
			Help:      "Signed transactions relayed to the network.",
		}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "navigation_feed_clients",
			Help:      "Connected navigation feed clients.",
		}),
	}

	m.registry.MustRegister(
		m.batchesFlushed,
		m.batchSize,
		m.batchFailures,
		m.deepLinkRequests,
		m.correlations,
		m.broadcasts,
		m.feedClients,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler returns the /metrics handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBatch records a flushed batch
func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batchesFlushed.Inc()
	m.batchSize.Observe(float64(size))
}

// BatchFailed records a batch rejected as a whole
func (m *Metrics) BatchFailed(reason string) {
	if m == nil {
		return
	}
	m.batchFailures.WithLabelValues(reason).Inc()
}

// DeepLinkSent records a request handed to the wallet
func (m *Metrics) DeepLinkSent(kind string) {
	if m == nil {
		return
	}
	m.deepLinkRequests.WithLabelValues(kind).Inc()
}

// Correlated records the outcome of a correlation wait
func (m *Metrics) Correlated(kind, outcome string) {
	if m == nil {
		return
	}
	m.correlations.WithLabelValues(kind, outcome).Inc()
}

// Broadcast records a relayed transaction
func (m *Metrics) Broadcast() {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
}

// SetFeedClients records the number of navigation feed clients
func (m *Metrics) SetFeedClients(n int) {
	if m == nil {
		return
	}
	m.feedClients.Set(float64(n))
}
