package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chronicle_stage_duration_seconds",
			Help: "Time spent in each pipeline stage",
		},
		[]string{"stage", "outcome"},
	)

	articlesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronicle_articles_processed_total",
			Help: "Number of articles processed, by final status",
		},
		[]string{"status"},
	)

	contradictionsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chronicle_contradictions_detected_total",
			Help: "Number of contradiction relationships written to the graph",
		},
	)
)

func init() {
	prometheus.MustRegister(stageDuration)
	prometheus.MustRegister(articlesProcessed)
	prometheus.MustRegister(contradictionsDetected)
}
