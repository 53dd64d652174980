package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes pipeline metrics via Prometheus.
type Recorder struct {
	itemsIngested    *prometheus.CounterVec
	duplicates       prometheus.Counter
	itemsScored      prometheus.Counter
	scoringFailures  prometheus.Counter
	sourceFailures   *prometheus.CounterVec
	queueDrops       *prometheus.CounterVec
	broadcastDrops   prometheus.Counter
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	activeConns      prometheus.Gauge
	signalStrength   *prometheus.GaugeVec
	signalTransitions *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		itemsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiflow_items_ingested_total",
				Help: "Total number of news items accepted by the ingestion scheduler",
			},
			[]string{"source"},
		),
		duplicates: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentiflow_duplicates_dropped_total",
				Help: "Total number of items dropped as duplicates within the dedup horizon",
			},
		),
		itemsScored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentiflow_items_scored_total",
				Help: "Total number of items successfully scored",
			},
		),
		scoringFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentiflow_scoring_failures_total",
				Help: "Total number of items dropped due to failed or timed out scoring calls",
			},
		),
		sourceFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiflow_source_failures_total",
				Help: "Total number of source fetch failures",
			},
			[]string{"source"},
		),
		queueDrops: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiflow_queue_drops_total",
				Help: "Total number of items dropped on bounded queue overflow",
			},
			[]string{"stage"},
		),
		broadcastDrops: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sentiflow_broadcast_drops_total",
				Help: "Total number of outbound messages dropped for slow subscribers",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiflow_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentiflow_operation_duration_seconds",
				Help:    "Duration of pipeline operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		activeConns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentiflow_active_connections",
				Help: "Current number of connected subscribers",
			},
		),
		signalStrength: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentiflow_signal_strength",
				Help: "Strength of the current signal per symbol",
			},
			[]string{"symbol", "type"},
		),
		signalTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiflow_signal_transitions_total",
				Help: "Total number of emitted signal changes",
			},
			[]string{"symbol", "type"},
		),
	}
}

func (r *Recorder) RecordIngested(source string, n int) {
	r.itemsIngested.WithLabelValues(source).Add(float64(n))
}

func (r *Recorder) RecordDuplicates(n int) { r.duplicates.Add(float64(n)) }

func (r *Recorder) RecordScored(n int) { r.itemsScored.Add(float64(n)) }

func (r *Recorder) RecordScoringFailures(n int) { r.scoringFailures.Add(float64(n)) }

func (r *Recorder) RecordSourceFailure(source string) {
	r.sourceFailures.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordQueueDrop(stage string) { r.queueDrops.WithLabelValues(stage).Inc() }

func (r *Recorder) RecordBroadcastDrop() { r.broadcastDrops.Inc() }

func (r *Recorder) RecordError(kind string) { r.errorsTotal.WithLabelValues(kind).Inc() }

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) SetActiveConnections(n int) { r.activeConns.Set(float64(n)) }

func (r *Recorder) RecordSignal(symbol, signalType string, strength float64) {
	r.signalStrength.WithLabelValues(symbol, signalType).Set(strength)
	r.signalTransitions.WithLabelValues(symbol, signalType).Inc()
}
