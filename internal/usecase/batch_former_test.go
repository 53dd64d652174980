package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"SentiFlow/internal/domain/models"
)

type batchSink struct {
	mu      sync.Mutex
	batches [][]models.NewsItem
}

func (s *batchSink) dispatch(_ context.Context, batch []models.NewsItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.NewsItem, len(batch))
	copy(cp, batch)
	s.batches = append(s.batches, cp)
}

func (s *batchSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *batchSink) get(i int) []models.NewsItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[i]
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestBatchFormerSizeTrigger(t *testing.T) {
	in := make(chan models.NewsItem, 16)
	sink := &batchSink{}
	timerFired := make(chan time.Time) // never fires
	former := NewBatchFormer(in, 3, time.Hour, sink.dispatch,
		WithBatchTimer(func(time.Duration) <-chan time.Time { return timerFired }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	former.Start(ctx)

	for i := 0; i < 3; i++ {
		in <- models.NewsItem{ID: string(rune('a' + i))}
	}

	eventually(t, func() bool { return sink.count() == 1 }, "size trigger never dispatched")
	if got := len(sink.get(0)); got != 3 {
		t.Fatalf("batch size = %d, want 3", got)
	}
}

func TestBatchFormerWaitTrigger(t *testing.T) {
	in := make(chan models.NewsItem, 16)
	sink := &batchSink{}
	timer := make(chan time.Time, 1)
	former := NewBatchFormer(in, 32, time.Hour, sink.dispatch,
		WithBatchTimer(func(time.Duration) <-chan time.Time { return timer }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	former.Start(ctx)

	in <- models.NewsItem{ID: "only"}
	eventually(t, func() bool { return len(in) == 0 }, "item never consumed")
	if sink.count() != 0 {
		t.Fatal("dispatched before the wait elapsed")
	}

	timer <- time.Now()
	eventually(t, func() bool { return sink.count() == 1 }, "wait trigger never dispatched")
	if got := len(sink.get(0)); got != 1 {
		t.Fatalf("batch size = %d, want 1", got)
	}
}

func TestBatchFormerFlushesOnCancel(t *testing.T) {
	in := make(chan models.NewsItem, 16)
	sink := &batchSink{}
	former := NewBatchFormer(in, 32, time.Hour, sink.dispatch)

	ctx, cancel := context.WithCancel(context.Background())
	former.Start(ctx)

	in <- models.NewsItem{ID: "pending"}
	eventually(t, func() bool { return len(in) == 0 }, "item never picked up")
	cancel()

	eventually(t, func() bool { return sink.count() == 1 }, "cancel lost the in-flight batch")
}

func TestBatchFormerPreservesOrder(t *testing.T) {
	in := make(chan models.NewsItem, 16)
	sink := &batchSink{}
	former := NewBatchFormer(in, 4, time.Hour, sink.dispatch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	former.Start(ctx)

	ids := []string{"w", "x", "y", "z"}
	for _, id := range ids {
		in <- models.NewsItem{ID: id}
	}

	eventually(t, func() bool { return sink.count() == 1 }, "batch never formed")
	batch := sink.get(0)
	for i, id := range ids {
		if batch[i].ID != id {
			t.Fatalf("order broken at %d: %s", i, batch[i].ID)
		}
	}
}
