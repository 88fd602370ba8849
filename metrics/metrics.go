package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PredictionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flightprice",
			Subsystem: "serving",
			Name:      "latency_seconds",
			Help:      "Latency of prediction endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightprice",
			Subsystem: "serving",
			Name:      "predictions_total",
			Help:      "Predictions by model type and outcome",
		},
		[]string{"model", "status"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flightprice",
			Subsystem: "serving",
			Name:      "cache_hits_total",
			Help:      "Prediction cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "flightprice",
			Subsystem: "serving",
			Name:      "cache_misses_total",
			Help:      "Prediction cache misses",
		},
	)

	TrainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightprice",
			Subsystem: "training",
			Name:      "runs_total",
			Help:      "Training runs by outcome",
		},
		[]string{"status"},
	)

	TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "flightprice",
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of training runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		},
	)

	ModelMAE = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flightprice",
			Subsystem: "model",
			Name:      "mae",
			Help:      "Mean absolute error of the active model",
		},
	)

	ModelRMSE = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flightprice",
			Subsystem: "model",
			Name:      "rmse",
			Help:      "Root mean squared error of the active model",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PredictionLatency,
			PredictionsTotal,
			CacheHits,
			CacheMisses,
			TrainingRuns,
			TrainingDuration,
			ModelMAE,
			ModelRMSE,
		)
	})
}
