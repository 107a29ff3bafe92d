package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Completion session metrics
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter

	// Coach metrics
	CoachTurnLatency prometheus.Histogram
	CoachErrors      *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. Call once at startup.
func InitMetrics(store *SessionStore) *Metrics {
	metrics := &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitacore_completion_sessions_started_total",
			Help: "Total number of completion sessions started",
		}),

		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vitacore_completion_sessions_completed_total",
			Help: "Total number of completion sessions that produced a report",
		}),

		CoachTurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vitacore_coach_turn_duration_seconds",
			Help:    "Coach turn latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}, // upstream model can be slow
		}),

		CoachErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vitacore_coach_errors_total",
			Help: "Total number of coach errors by stage",
		}, []string{"stage"}), // stage: "start" or "chat"
	}

	// Active sessions read live from the store
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "vitacore_completion_sessions_active",
			Help: "Current number of active completion sessions",
		},
		func() float64 {
			if store != nil {
				return float64(store.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// recordSessionStarted is a nil-safe hook for the completion engine
func recordSessionStarted() {
	if globalMetrics != nil {
		globalMetrics.SessionsStarted.Inc()
	}
}

func recordSessionCompleted() {
	if globalMetrics != nil {
		globalMetrics.SessionsCompleted.Inc()
	}
}

func recordCoachTurn(seconds float64) {
	if globalMetrics != nil {
		globalMetrics.CoachTurnLatency.Observe(seconds)
	}
}

func recordCoachError(stage string) {
	if globalMetrics != nil {
		globalMetrics.CoachErrors.WithLabelValues(stage).Inc()
	}
}
