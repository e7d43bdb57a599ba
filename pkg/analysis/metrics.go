package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// analysesTotal counts analysis runs by result
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisdom_analyses_total",
		Help: "Total analysis runs by result",
	}, []string{"result"})

	// stageDuration tracks the latency of each analysis stage
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wisdom_analysis_stage_duration_seconds",
		Help:    "Analysis stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	}, []string{"stage"})

	// graphNodes tracks the size of analyzed graphs
	graphNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wisdom_graph_nodes",
		Help:    "Number of nodes per analyzed graph",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000},
	})
)

func observeStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func observeRun(start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	analysesTotal.WithLabelValues(result).Inc()
	observeStage("total", start)
}
