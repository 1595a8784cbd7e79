package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/voicecheck/api/internal/model"
)

const namespace = "voicecheck"

// Metrics holds the Prometheus collectors for the analysis pipeline.
type Metrics struct {
	Registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	predictionsTotal *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	scratchSwept     prometheus.Counter
}

// New creates the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		analysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analyze requests by outcome",
		}, []string{"outcome"}),

		predictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of classifications by prediction label",
		}, []string{"prediction"}),

		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent staging and classifying an upload",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		scratchSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scratch_swept_total",
			Help:      "Total number of stale scratch files removed by the sweeper",
		}),
	}
}

// ObserveOutcome counts a finished analyze request.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveResult records a successful classification and its latency.
func (m *Metrics) ObserveResult(prediction model.Prediction, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictionsTotal.WithLabelValues(string(prediction)).Inc()
	m.analysisDuration.Observe(elapsed.Seconds())
}

// AddSwept counts files removed by the scratch sweeper.
func (m *Metrics) AddSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scratchSwept.Add(float64(n))
}
