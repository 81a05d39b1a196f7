package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters.
type Metrics struct {
	probes            prometheus.Counter
	modulesDiscovered prometheus.Counter
	abiFetches        prometheus.Counter
	cacheHits         prometheus.Counter
	errors            prometheus.Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			probes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "abiscout_probes_total",
				Help: "Total number of module accessor probes issued",
			}),
			modulesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "abiscout_modules_discovered_total",
				Help: "Total number of submodules discovered",
			}),
			abiFetches: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "abiscout_abi_fetches_total",
				Help: "Total number of ABI documents fetched from the explorer",
			}),
			cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "abiscout_cache_hits_total",
				Help: "Total number of ABI fetches served from the local cache",
			}),
			errors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "abiscout_errors_total",
				Help: "Total number of errors encountered",
			}),
		}
		prometheus.MustRegister(
			metrics.probes,
			metrics.modulesDiscovered,
			metrics.abiFetches,
			metrics.cacheHits,
			metrics.errors,
		)
	})
	return metrics
}

// Probes increments the accessor probe counter.
func (m *Metrics) Probes() {
	if m != nil {
		m.probes.Inc()
	}
}

// ModulesDiscovered increments the discovered module counter.
func (m *Metrics) ModulesDiscovered() {
	if m != nil {
		m.modulesDiscovered.Inc()
	}
}

// ABIFetches increments the explorer fetch counter.
func (m *Metrics) ABIFetches() {
	if m != nil {
		m.abiFetches.Inc()
	}
}

// CacheHits increments the cache hit counter.
func (m *Metrics) CacheHits() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// Errors increments the errors counter.
func (m *Metrics) Errors() {
	if m != nil {
		m.errors.Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
