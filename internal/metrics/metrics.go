package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_connections_active",
		Help: "Currently open WebSocket connections",
	})

	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_connections_total",
		Help: "Total WebSocket connections accepted",
	})

	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_turns_total",
		Help: "Speech turns submitted for processing",
	})

	TurnsBusyRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_turns_busy_rejected_total",
		Help: "Turns rejected because the user already had one in flight",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_stage_duration_seconds",
		Help:    "Per-stage latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_turn_duration_seconds",
		Help:    "End-to-end latency from turn submission to processing_complete",
		Buckets: []float64{0.2, 0.5, 1.0, 1.5, 2.0, 3.0, 5.0, 10.0, 20.0},
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_auth_failures_total",
		Help: "Rejected authentication attempts",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_sessions_active",
		Help: "Therapy sessions currently open",
	})

	ContextEntriesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_context_entries_swept_total",
		Help: "Conversation context entries removed by the periodic sweep",
	})

	VisualAidsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_visual_aids_generated_total",
		Help: "Visual aid images generated successfully",
	})
)
