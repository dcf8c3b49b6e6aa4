// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Discovery metrics
	TokensDiscovered  *prometheus.CounterVec
	CandidatesCreated prometheus.Counter
	DiscoveryDropped  *prometheus.CounterVec

	// Evaluation metrics
	SignalResults    *prometheus.CounterVec
	SignalLatency    *prometheus.HistogramVec
	StageAdvances    *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	ActiveCandidates prometheus.Gauge

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	CyclesSkipped prometheus.Counter

	// Decision metrics
	Decisions *prometheus.CounterVec

	// Execution metrics
	TradesOpened  prometheus.Counter
	TradesSettled *prometheus.CounterVec
	TradeRetries  prometheus.Counter

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_scout"
	}

	return &Metrics{
		// Discovery metrics
		TokensDiscovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "tokens_discovered_total",
			Help:      "Total number of tokens seen by discovery, by source",
		}, []string{"source"}),
		CandidatesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_created_total",
			Help:      "Total number of new candidates registered",
		}),
		DiscoveryDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "dropped_total",
			Help:      "Total number of discovered tokens dropped, by reason",
		}, []string{"reason"}),

		// Evaluation metrics
		SignalResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "results_total",
			Help:      "Total number of signal results by source and outcome",
		}, []string{"source", "outcome"}),
		SignalLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "latency_seconds",
			Help:      "Signal source call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		StageAdvances: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_advances_total",
			Help:      "Total number of stage advances by target stage",
		}, []string{"stage"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rejections_total",
			Help:      "Total number of candidate rejections by reason class",
		}, []string{"reason"}),
		ActiveCandidates: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "active_candidates",
			Help:      "Current number of non-terminal candidates",
		}),

		// Cycle metrics
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycles_total",
			Help:      "Total number of evaluation cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycle_duration_seconds",
			Help:      "Evaluation cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
		}),
		CyclesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycles_skipped_total",
			Help:      "Total number of ticks skipped because a cycle was still running",
		}),

		// Decision metrics
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "verdicts_total",
			Help:      "Total number of decisions by verdict",
		}, []string{"verdict"}),

		// Execution metrics
		TradesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_opened_total",
			Help:      "Total number of trades opened",
		}),
		TradesSettled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_settled_total",
			Help:      "Total number of trades reaching a terminal state",
		}, []string{"state"}),
		TradeRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trade_retries_total",
			Help:      "Total number of order resubmissions",
		}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last completed evaluation cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
