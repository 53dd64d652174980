package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SentiFlow/internal/domain/models"
	domrepo "SentiFlow/internal/domain/repository"
)

func sourcesOf(srcs ...domrepo.Source) []domrepo.Source {
	return srcs
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)}
}

func drain(s *IngestScheduler) []models.NewsItem {
	var out []models.NewsItem
	for {
		select {
		case it := <-s.Out():
			out = append(out, it)
		default:
			return out
		}
	}
}

func TestIngestDedupIdempotence(t *testing.T) {
	clock := newTestClock()
	src := &stubSource{name: "wire", items: []models.RawItem{
		{Text: "$AAPL beats expectations", SourceName: "wire"},
	}}
	metrics := newStubMetrics()
	sched := NewIngestScheduler(
		sourcesOf(src), newMemDedup(clock.Now), metrics, testLogger(t),
		2*time.Second, 15*time.Minute, 16,
		WithIngestClock(clock.Now),
	)

	sched.Poll(context.Background())
	sched.Poll(context.Background())

	items := drain(sched)
	if len(items) != 1 {
		t.Fatalf("expected exactly one enqueue, got %d", len(items))
	}
	if got := metrics.snapshot(); got.duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", got.duplicates)
	}
}

func TestIngestBackoffAndDegraded(t *testing.T) {
	clock := newTestClock()
	src := &stubSource{name: "flaky", err: errors.New("connection refused")}
	metrics := newStubMetrics()
	sched := NewIngestScheduler(
		sourcesOf(src), newMemDedup(clock.Now), metrics, testLogger(t),
		2*time.Second, 15*time.Minute, 16,
		WithIngestClock(clock.Now),
		WithIngestBackoff(500*time.Millisecond, 10*time.Second, 3),
	)

	ctx := context.Background()
	sched.Poll(ctx)
	if src.fetchCount() != 1 {
		t.Fatalf("fetches = %d", src.fetchCount())
	}

	// Backoff holds the source out of the immediately following poll.
	sched.Poll(ctx)
	if src.fetchCount() != 1 {
		t.Fatalf("backoff ignored, fetches = %d", src.fetchCount())
	}

	// After the wait elapses it is retried; repeated failures degrade it.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Minute)
		sched.Poll(ctx)
	}
	if !sched.Degraded("flaky") {
		t.Fatal("source should be degraded after consecutive failures")
	}
	if got := metrics.snapshot(); got.sourceFailures["flaky"] < 3 {
		t.Fatalf("source failures = %d", got.sourceFailures["flaky"])
	}

	// One success clears the degraded mark.
	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()
	clock.Advance(time.Hour)
	sched.Poll(ctx)
	if sched.Degraded("flaky") {
		t.Fatal("success should clear degraded state")
	}
}

func TestIngestFailingSourceDoesNotBlockOthers(t *testing.T) {
	clock := newTestClock()
	bad := &stubSource{name: "bad", err: errors.New("boom")}
	good := &stubSource{name: "good", items: []models.RawItem{
		{Text: "NVDA rallies on record growth", SourceName: "good"},
	}}
	metrics := newStubMetrics()
	sched := NewIngestScheduler(
		sourcesOf(bad, good), newMemDedup(clock.Now), metrics, testLogger(t),
		2*time.Second, 15*time.Minute, 16,
		WithIngestClock(clock.Now),
	)

	sched.Poll(context.Background())
	items := drain(sched)
	if len(items) != 1 || items[0].Source != "good" {
		t.Fatalf("healthy source starved: %v", items)
	}
}

func TestIngestQueueOverflowDropsNewest(t *testing.T) {
	clock := newTestClock()
	var raws []models.RawItem
	for i := 0; i < 8; i++ {
		raws = append(raws, models.RawItem{
			Text:       "TSLA headline variant " + string(rune('a'+i)),
			SourceName: "wire",
		})
	}
	src := &stubSource{name: "wire", items: raws}
	metrics := newStubMetrics()
	sched := NewIngestScheduler(
		sourcesOf(src), newMemDedup(clock.Now), metrics, testLogger(t),
		2*time.Second, 15*time.Minute, 4,
		WithIngestClock(clock.Now),
	)

	sched.Poll(context.Background())
	items := drain(sched)
	if len(items) != 4 {
		t.Fatalf("queue admitted %d items, cap 4", len(items))
	}
	if got := metrics.snapshot(); got.queueDrops["ingest"] != 4 {
		t.Fatalf("queue drops = %d, want 4", got.queueDrops["ingest"])
	}
	if sched.QueueDrops() != 4 {
		t.Fatalf("scheduler drop counter = %d, want 4", sched.QueueDrops())
	}
	// The oldest fetched items survive; the newest were refused.
	if items[0].Text != raws[0].Text {
		t.Fatalf("drop-newest violated, head = %q", items[0].Text)
	}
}

func TestIngestExtractsSymbols(t *testing.T) {
	clock := newTestClock()
	src := &stubSource{name: "wire", items: []models.RawItem{
		{Text: "Apple and $MSFT announce a partnership", SourceName: "wire"},
	}}
	sched := NewIngestScheduler(
		sourcesOf(src), newMemDedup(clock.Now), newStubMetrics(), testLogger(t),
		2*time.Second, 15*time.Minute, 16,
		WithIngestClock(clock.Now),
	)

	sched.Poll(context.Background())
	items := drain(sched)
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	want := []string{"AAPL", "MSFT"}
	if len(items[0].Symbols) != 2 || items[0].Symbols[0] != want[0] || items[0].Symbols[1] != want[1] {
		t.Fatalf("symbols = %v, want %v", items[0].Symbols, want)
	}
}
