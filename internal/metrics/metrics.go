package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EmotionFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mogimensetsu_emotion_frames_total",
			Help: "Emotion frames by outcome (applied, skipped, failed)",
		},
		[]string{"outcome"},
	)

	EvaluationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mogimensetsu_evaluation_runs_total",
			Help: "Evaluation runs by outcome (succeeded, failed, skipped, rejected)",
		},
		[]string{"outcome"},
	)

	OracleChunkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mogimensetsu_oracle_chunk_duration_seconds",
			Help:    "Duration of scoring oracle calls per chunk",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	LiveDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mogimensetsu_live_deliveries_total",
			Help: "Live channel deliveries by event type and outcome (delivered, skipped)",
		},
		[]string{"event", "outcome"},
	)

	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mogimensetsu_live_subscribers",
			Help: "Number of live subscribers connected to this instance",
		},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(EmotionFrames, EvaluationRuns, OracleChunkDuration, LiveDeliveries, LiveSubscribers)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
