package sources

import (
	"context"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)
}

func TestSimSourceDeterministic(t *testing.T) {
	a := NewSimSource(3, 42, fixedNow)
	b := NewSimSource(3, 42, fixedNow)

	ia, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ib, err := b.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ia) != 3 || len(ib) != 3 {
		t.Fatalf("expected 3 items each, got %d and %d", len(ia), len(ib))
	}
	for i := range ia {
		if ia[i].Text != ib[i].Text {
			t.Fatalf("same seed diverged at %d: %q vs %q", i, ia[i].Text, ib[i].Text)
		}
	}
}

func TestSimSourceUniqueAcrossPolls(t *testing.T) {
	s := NewSimSource(4, 1, fixedNow)
	first, _ := s.Fetch(context.Background())
	second, _ := s.Fetch(context.Background())

	seen := make(map[string]bool)
	for _, it := range first {
		seen[it.Text] = true
	}
	for _, it := range second {
		if seen[it.Text] {
			t.Fatalf("poll reissued text %q", it.Text)
		}
	}
}

func TestKafkaSourceBuffersAndDrains(t *testing.T) {
	s := NewKafkaSource("market.news", 8, fixedNow)
	ctx := context.Background()

	if err := s.Handle(ctx, []byte(`{"text":"$AAPL beats expectations","source":"wire"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Handle(ctx, []byte(`{"text":"Tesla recalls vehicles"}`)); err != nil {
		t.Fatal(err)
	}

	items, err := s.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].SourceName != "wire" {
		t.Fatalf("source = %q", items[0].SourceName)
	}
	if items[1].SourceName != "kafka:market.news" {
		t.Fatalf("fallback source = %q", items[1].SourceName)
	}
	if !items[1].PublishedAt.Equal(fixedNow()) {
		t.Fatalf("missing published_at should default to clock")
	}

	again, _ := s.Fetch(ctx)
	if len(again) != 0 {
		t.Fatalf("drained source returned %d items", len(again))
	}
}

func TestKafkaSourceRejectsMalformed(t *testing.T) {
	s := NewKafkaSource("market.news", 8, fixedNow)
	if err := s.Handle(context.Background(), []byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}
