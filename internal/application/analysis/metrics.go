package analysis

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics reports pipeline activity to Prometheus.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	analyses      *prometheus.CounterVec
	fallbacks     prometheus.Counter
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns the instance registered with the global registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the collectors on reg and panics on conflicts other
// than an identical collector already being present.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ingredient_copilot",
			Subsystem: "analysis",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each analysis stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)
	analyses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingredient_copilot",
			Subsystem: "analysis",
			Name:      "completed_total",
			Help:      "Completed analyses by verdict and risk level.",
		},
		[]string{"verdict", "risk"},
	)
	fallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ingredient_copilot",
			Subsystem: "analysis",
			Name:      "parse_fallbacks_total",
			Help:      "AI replies that could not be parsed and used the fallback result.",
		},
	)

	for _, c := range []prometheus.Collector{stageDuration, analyses, fallbacks} {
		if err := reg.Register(c); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				panic(err)
			}
			switch c {
			case stageDuration:
				stageDuration = already.ExistingCollector.(*prometheus.HistogramVec)
			case analyses:
				analyses = already.ExistingCollector.(*prometheus.CounterVec)
			case fallbacks:
				fallbacks = already.ExistingCollector.(prometheus.Counter)
			}
		}
	}
	return &Metrics{stageDuration: stageDuration, analyses: analyses, fallbacks: fallbacks}
}

// ObserveStage records a stage duration; a nil receiver is a no-op.
func (m *Metrics) ObserveStage(stage string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

func (m *Metrics) IncCompleted(verdict, risk string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(verdict, risk).Inc()
}

func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}
