package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stockpredictor",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Duration of analysis stages",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"stage"},
	)

	AnalysisRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpredictor",
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Analysis requests by outcome",
		},
		[]string{"outcome"},
	)

	SignalsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpredictor",
			Subsystem: "signals",
			Name:      "emitted_total",
			Help:      "Trading signals emitted by class",
		},
		[]string{"class"},
	)

	ForecastTrainingLoss = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stockpredictor",
			Subsystem: "forecast",
			Name:      "training_loss",
			Help:      "Final epoch MSE of the last trained forecast model (scaled units)",
		},
	)
)

// Register adds the collectors to the default registry once
func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalysisDuration, AnalysisRequests, SignalsEmitted, ForecastTrainingLoss)
	})
}
