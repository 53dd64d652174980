package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"SentiFlow/internal/domain/models"
	"SentiFlow/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return log
}

// stubMetrics counts stage transitions without Prometheus.
type stubMetrics struct {
	mu              sync.Mutex
	ingested        int
	duplicates      int
	scored          int
	scoringFailures int
	sourceFailures  map[string]int
	queueDrops      map[string]int
	broadcastDrops  int
	errors          map[string]int
	signals         int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{
		sourceFailures: make(map[string]int),
		queueDrops:     make(map[string]int),
		errors:         make(map[string]int),
	}
}

func (m *stubMetrics) RecordIngested(source string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested += n
}

func (m *stubMetrics) RecordDuplicates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicates += n
}

func (m *stubMetrics) RecordScored(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scored += n
}

func (m *stubMetrics) RecordScoringFailures(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoringFailures += n
}

func (m *stubMetrics) RecordSourceFailure(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceFailures[source]++
}

func (m *stubMetrics) RecordQueueDrop(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDrops[stage]++
}

func (m *stubMetrics) RecordBroadcastDrop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastDrops++
}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *stubMetrics) RecordLatency(op string, seconds float64) {}

func (m *stubMetrics) SetActiveConnections(n int) {}

func (m *stubMetrics) RecordSignal(symbol string, t models.SignalType, strength float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals++
}

func (m *stubMetrics) snapshot() *stubMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := &stubMetrics{
		ingested:        m.ingested,
		duplicates:      m.duplicates,
		scored:          m.scored,
		scoringFailures: m.scoringFailures,
		broadcastDrops:  m.broadcastDrops,
		signals:         m.signals,
		sourceFailures:  make(map[string]int, len(m.sourceFailures)),
		queueDrops:      make(map[string]int, len(m.queueDrops)),
		errors:          make(map[string]int, len(m.errors)),
	}
	for k, v := range m.sourceFailures {
		cp.sourceFailures[k] = v
	}
	for k, v := range m.queueDrops {
		cp.queueDrops[k] = v
	}
	for k, v := range m.errors {
		cp.errors[k] = v
	}
	return cp
}

// memDedup is an in-memory dedup index with TTL honored against a test clock.
type memDedup struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func newMemDedup(now func() time.Time) *memDedup {
	return &memDedup{seen: make(map[string]time.Time), now: now}
}

func (d *memDedup) Seen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[id]; ok && d.now().Before(exp) {
		return true, nil
	}
	d.seen[id] = d.now().Add(ttl)
	return false, nil
}

// stubSource replays canned items or a canned error.
type stubSource struct {
	name    string
	mu      sync.Mutex
	items   []models.RawItem
	err     error
	fetches int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]models.RawItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.RawItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *stubSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// stubScorer returns a fixed result per text, or fails wholesale.
type stubScorer struct {
	sentiment  models.Sentiment
	confidence float64
	err        error
}

func (s *stubScorer) ScoreBatch(ctx context.Context, texts []string) ([]models.ScoreResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.ScoreResult, len(texts))
	for i := range out {
		out[i] = models.ScoreResult{Sentiment: s.sentiment, Confidence: s.confidence}
	}
	return out, nil
}
