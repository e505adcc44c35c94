package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shackbot/internal/llm"
)

// Monitor collects service metrics. Counters go to a Prometheus registry
// and, summed, to a JSON-friendly snapshot.
type Monitor struct {
	registry *prometheus.Registry

	llmAttempts      *prometheus.CounterVec
	llmDuration      prometheus.Histogram
	intents          *prometheus.CounterVec
	cartMutations    *prometheus.CounterVec
	checkouts        *prometheus.CounterVec
	catalogRefreshes *prometheus.CounterVec

	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time
}

// NewMonitor creates a monitor with its own registry
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()

	m := &Monitor{
		registry: registry,
		llmAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_attempts_total",
				Help: "LLM provider calls made by the guard",
			},
			[]string{"outcome", "kind"},
		),
		llmDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "llm_attempt_duration_seconds",
				Help:    "Duration of single LLM provider calls",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		intents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intents_total",
				Help: "Classified messages by intent",
			},
			[]string{"intent"},
		),
		cartMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_mutations_total",
				Help: "Cart changes by operation and result",
			},
			[]string{"operation", "result"},
		),
		checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkouts_total",
				Help: "Checkout attempts by result",
			},
			[]string{"result"},
		),
		catalogRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_refreshes_total",
				Help: "Catalog source fetches by result",
			},
			[]string{"result"},
		),
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
	}

	registry.MustRegister(
		m.llmAttempts,
		m.llmDuration,
		m.intents,
		m.cartMutations,
		m.checkouts,
		m.catalogRefreshes,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the Prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// breakerStates maps circuit breaker states to gauge values
var breakerStates = map[string]float64{"closed": 0, "half-open": 1, "open": 2}

// TrackBreaker exports a circuit breaker's state as
// llm_circuit_state{breaker} (0 closed, 1 half-open, 2 open)
func (m *Monitor) TrackBreaker(name string, state func() string) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "llm_circuit_state",
			Help:        "LLM provider circuit breaker state",
			ConstLabels: prometheus.Labels{"breaker": name},
		},
		func() float64 { return breakerStates[state()] },
	))
}

// ObserveLLMAttempt implements llm.AttemptObserver
func (m *Monitor) ObserveLLMAttempt(a llm.Attempt) {
	outcome, kind := "success", ""
	if a.Err != nil {
		outcome, kind = "error", a.Kind.String()
	}
	m.llmAttempts.WithLabelValues(outcome, kind).Inc()
	m.llmDuration.Observe(a.Duration.Seconds())
	m.increment("llm_attempts_total")
	if a.Err != nil {
		m.increment("llm_errors_total")
	}
}

// ObserveCatalogRefresh implements catalog.RefreshObserver
func (m *Monitor) ObserveCatalogRefresh(result string, _ time.Duration) {
	m.catalogRefreshes.WithLabelValues(result).Inc()
	m.increment("catalog_refreshes_" + result)
}

// ObserveIntent counts a classified message
func (m *Monitor) ObserveIntent(intent string) {
	m.intents.WithLabelValues(intent).Inc()
	m.increment("intent_" + intent)
}

// ObserveCartMutation counts a cart change
func (m *Monitor) ObserveCartMutation(operation, result string) {
	m.cartMutations.WithLabelValues(operation, result).Inc()
	m.increment("cart_" + operation + "_" + result)
}

// ObserveCheckout counts a checkout attempt
func (m *Monitor) ObserveCheckout(result string) {
	m.checkouts.WithLabelValues(result).Inc()
	m.increment("checkout_" + result)
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// GetMetric returns a specific metric value
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// GetMetrics returns all current metrics
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	// Create a copy to avoid concurrent map access
	metrics := make(map[string]interface{}, len(m.metrics)+1)
	for k, v := range m.metrics {
		metrics[k] = v
	}
	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()
	return metrics
}

// Reset clears the snapshot. Prometheus counters are left alone.
func (m *Monitor) Reset() {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics = make(map[string]interface{})
}

func (m *Monitor) increment(name string) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	n, _ := m.metrics[name].(float64)
	m.metrics[name] = n + 1
}
