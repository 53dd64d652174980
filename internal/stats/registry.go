package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"SentiFlow/internal/domain/models"
	"SentiFlow/pkg/metrics"
)

// Registry is the process-wide stats surface. Every stage transition lands
// here; the Prometheus recorder is updated alongside the snapshot counters.
type Registry struct {
	prom *metrics.Recorder

	itemsIngested    atomic.Int64
	duplicates       atomic.Int64
	itemsScored      atomic.Int64
	scoringFailures  atomic.Int64
	sourceFailures   atomic.Int64
	queueDrops       atomic.Int64
	broadcastDrops   atomic.Int64
	activeConns      atomic.Int64
	startedAt        time.Time

	mu        sync.RWMutex
	signals   map[string]SignalEntry
	latencies []float64
	latIdx    int
	latFull   bool
}

// SignalEntry is the snapshot view of a symbol's current signal.
type SignalEntry struct {
	Type     models.SignalType `json:"type"`
	Strength float64           `json:"strength"`
}

// Snapshot is a read-only view of the pipeline counters.
type Snapshot struct {
	ItemsIngested    int64                  `json:"items_ingested"`
	DuplicatesDropped int64                 `json:"duplicates_dropped"`
	ItemsScored      int64                  `json:"items_scored"`
	ScoringFailures  int64                  `json:"scoring_failures"`
	SourceFailures   int64                  `json:"source_failures"`
	QueueDrops       int64                  `json:"queue_drops"`
	BroadcastDrops   int64                  `json:"broadcast_drops"`
	ActiveConnections int64                 `json:"active_connections"`
	AverageLatencyMs float64                `json:"average_latency_ms"`
	UptimeSeconds    float64                `json:"uptime_seconds"`
	Signals          map[string]SignalEntry `json:"signals"`
}

const latencyWindow = 1024

// NewRegistry creates a stats registry. prom may be nil (tests).
func NewRegistry(prom *metrics.Recorder) *Registry {
	return &Registry{
		prom:      prom,
		startedAt: time.Now(),
		signals:   make(map[string]SignalEntry),
		latencies: make([]float64, latencyWindow),
	}
}

func (r *Registry) RecordIngested(source string, n int) {
	r.itemsIngested.Add(int64(n))
	if r.prom != nil {
		r.prom.RecordIngested(source, n)
	}
}

func (r *Registry) RecordDuplicates(n int) {
	r.duplicates.Add(int64(n))
	if r.prom != nil {
		r.prom.RecordDuplicates(n)
	}
}

func (r *Registry) RecordScored(n int) {
	r.itemsScored.Add(int64(n))
	if r.prom != nil {
		r.prom.RecordScored(n)
	}
}

func (r *Registry) RecordScoringFailures(n int) {
	r.scoringFailures.Add(int64(n))
	if r.prom != nil {
		r.prom.RecordScoringFailures(n)
	}
}

func (r *Registry) RecordSourceFailure(source string) {
	r.sourceFailures.Add(1)
	if r.prom != nil {
		r.prom.RecordSourceFailure(source)
	}
}

func (r *Registry) RecordQueueDrop(stage string) {
	r.queueDrops.Add(1)
	if r.prom != nil {
		r.prom.RecordQueueDrop(stage)
	}
}

func (r *Registry) RecordBroadcastDrop() {
	r.broadcastDrops.Add(1)
	if r.prom != nil {
		r.prom.RecordBroadcastDrop()
	}
}

func (r *Registry) RecordError(kind string) {
	if r.prom != nil {
		r.prom.RecordError(kind)
	}
}

// RecordLatency feeds the rolling end-to-end latency average and the
// Prometheus histogram.
func (r *Registry) RecordLatency(op string, seconds float64) {
	if r.prom != nil {
		r.prom.RecordLatency(op, seconds)
	}
	if op != "e2e" {
		return
	}
	r.mu.Lock()
	r.latencies[r.latIdx] = seconds
	r.latIdx++
	if r.latIdx == len(r.latencies) {
		r.latIdx = 0
		r.latFull = true
	}
	r.mu.Unlock()
}

func (r *Registry) SetActiveConnections(n int) {
	r.activeConns.Store(int64(n))
	if r.prom != nil {
		r.prom.SetActiveConnections(n)
	}
}

func (r *Registry) RecordSignal(symbol string, t models.SignalType, strength float64) {
	r.mu.Lock()
	r.signals[symbol] = SignalEntry{Type: t, Strength: strength}
	r.mu.Unlock()
	if r.prom != nil {
		r.prom.RecordSignal(symbol, string(t), strength)
	}
}

// Snapshot returns a consistent copy of all counters.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	sigs := make(map[string]SignalEntry, len(r.signals))
	for k, v := range r.signals {
		sigs[k] = v
	}
	avg := r.averageLatencyLocked()
	r.mu.RUnlock()

	return Snapshot{
		ItemsIngested:     r.itemsIngested.Load(),
		DuplicatesDropped: r.duplicates.Load(),
		ItemsScored:       r.itemsScored.Load(),
		ScoringFailures:   r.scoringFailures.Load(),
		SourceFailures:    r.sourceFailures.Load(),
		QueueDrops:        r.queueDrops.Load(),
		BroadcastDrops:    r.broadcastDrops.Load(),
		ActiveConnections: r.activeConns.Load(),
		AverageLatencyMs:  avg * 1000,
		UptimeSeconds:     time.Since(r.startedAt).Seconds(),
		Signals:           sigs,
	}
}

func (r *Registry) averageLatencyLocked() float64 {
	n := r.latIdx
	if r.latFull {
		n = len(r.latencies)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += r.latencies[i]
	}
	return sum / float64(n)
}
