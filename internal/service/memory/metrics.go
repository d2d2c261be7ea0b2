package memory

import (
	"net/http"
	"time"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "healthmem"

// Run and chunk outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeDegraded    = "degraded"
	OutcomeInterrupted = "interrupted"
	OutcomeRejected    = "rejected"
	OutcomeParseError  = "parse_error"
	OutcomeOracleError = "oracle_error"
)

// Metrics instruments extraction runs. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	runs                *prometheus.CounterVec
	chunks              *prometheus.CounterVec
	candidates          *prometheus.CounterVec
	oracleLatency       prometheus.Histogram
	persistenceFailures *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Extraction runs by outcome.",
		}, []string{"outcome"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chunks_total",
			Help:      "Chunks sent to the oracle by outcome.",
		}, []string{"outcome"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "candidates_total",
			Help:      "Memory candidates extracted by type.",
		}, []string{"type"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Oracle call latency including pacing waits.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "persistence_failures_total",
			Help:      "Failed entry, bucket and index writes.",
		}, []string{"op"}),
	}

	registry.MustRegister(m.runs, m.chunks, m.candidates, m.oracleLatency, m.persistenceFailures)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeChunk(outcome string) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeCandidates(candidates []core.Candidate) {
	if m == nil {
		return
	}
	for _, c := range candidates {
		m.candidates.WithLabelValues(string(c.Type)).Inc()
	}
}

func (m *Metrics) observeOracle(d time.Duration) {
	if m == nil {
		return
	}
	m.oracleLatency.Observe(d.Seconds())
}

func (m *Metrics) observePersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(op).Inc()
}
