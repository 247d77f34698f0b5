package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels analyses that failed validation or log retrieval.
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_explain",
			Name:      "analyses_total",
			Help:      "Total number of anomaly analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_explain",
			Name:      "analysis_seconds",
			Help:      "Anomaly analysis latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	analysisLogCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_explain",
			Name:      "analysis_log_entries",
			Help:      "Number of log entries analyzed per request.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		},
	)
)

// Register attaches the explain-engine collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		analysisLogCount,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records one analysis duration, outcome label, and input
// size.
func ObserveAnalysis(duration time.Duration, outcome string, logCount int) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
	if logCount >= 0 {
		analysisLogCount.Observe(float64(logCount))
	}
}
