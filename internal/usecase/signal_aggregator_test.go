package usecase

import (
	"testing"
	"time"

	"SentiFlow/internal/domain/models"
)

func defaultAggConfig() AggregatorConfig {
	return AggregatorConfig{
		Window:        15 * time.Minute,
		Alpha:         0.2,
		ThresholdBuy:  0.3,
		ThresholdSell: -0.3,
		Normalizer:    1.0,
		Precision:     2,
		Shards:        16,
	}
}

func newTestAggregator(t *testing.T, clock *testClock) (*SignalAggregator, *stubMetrics) {
	t.Helper()
	metrics := newStubMetrics()
	return NewSignalAggregator(defaultAggConfig(), metrics, testLogger(t), clock.Now), metrics
}

func scoredItem(symbol string, sentiment models.Sentiment, conf float64, at time.Time) models.ScoredItem {
	return models.ScoredItem{
		NewsItem: models.NewsItem{
			ID:         models.DedupID(symbol+string(sentiment)+at.String(), "test"),
			Symbols:    []string{symbol},
			Text:       symbol + " headline",
			Source:     "test",
			IngestedAt: at,
		},
		Sentiment:  sentiment,
		Confidence: conf,
	}
}

func TestThresholdBoundaryIsStrict(t *testing.T) {
	clock := newTestClock()
	cfg := defaultAggConfig()
	cfg.Alpha = 1 // ema equals the latest signed score
	agg := NewSignalAggregator(cfg, newStubMetrics(), testLogger(t), clock.Now)

	// Exactly at the threshold: HOLD.
	sigs := agg.ProcessBatch([]models.ScoredItem{
		scoredItem("AAPL", models.SentimentPositive, 0.3, clock.Now()),
	})
	if len(sigs) != 1 || sigs[0].Type != models.SignalHold {
		t.Fatalf("at threshold got %v", sigs)
	}

	// Epsilon above: BUY.
	sigs = agg.ProcessBatch([]models.ScoredItem{
		scoredItem("AAPL", models.SentimentPositive, 0.300001, clock.Now()),
	})
	if len(sigs) != 1 || sigs[0].Type != models.SignalBuy {
		t.Fatalf("above threshold got %v", sigs)
	}
}

func TestSellThreshold(t *testing.T) {
	clock := newTestClock()
	cfg := defaultAggConfig()
	cfg.Alpha = 1
	agg := NewSignalAggregator(cfg, newStubMetrics(), testLogger(t), clock.Now)

	sigs := agg.ProcessBatch([]models.ScoredItem{
		scoredItem("TSLA", models.SentimentNegative, 0.8, clock.Now()),
	})
	if len(sigs) != 1 || sigs[0].Type != models.SignalSell {
		t.Fatalf("got %v", sigs)
	}
	if sigs[0].Strength <= 0 || sigs[0].Strength > 1 {
		t.Fatalf("strength %v out of range", sigs[0].Strength)
	}
}

func TestFortyPositiveItemsEmitSingleBuy(t *testing.T) {
	clock := newTestClock()
	agg, _ := newTestAggregator(t, clock)

	// Count transitions into BUY; strength refinements after the crossing
	// keep the type stable.
	var buyTransitions, sells int
	prev := models.SignalHold
	for i := 0; i < 40; i++ {
		items := []models.ScoredItem{
			scoredItem("AAPL", models.SentimentPositive, 0.9, clock.Now()),
		}
		for _, sig := range agg.ProcessBatch(items) {
			if sig.Type == models.SignalBuy && prev != models.SignalBuy {
				buyTransitions++
			}
			if sig.Type == models.SignalSell {
				sells++
			}
			prev = sig.Type
		}
		clock.Advance(time.Second)
	}

	if buyTransitions != 1 {
		t.Fatalf("BUY transition count = %d, want exactly 1", buyTransitions)
	}
	if sells != 0 {
		t.Fatalf("unexpected SELL signals: %d", sells)
	}
	cur := agg.SignalFor("AAPL")
	if cur == nil || cur.Type != models.SignalBuy {
		t.Fatalf("current signal %v", cur)
	}
	if cur.Sentiment <= 0.3 {
		t.Fatalf("net sentiment %v did not cross the buy threshold", cur.Sentiment)
	}
}

func TestWindowEviction(t *testing.T) {
	clock := newTestClock()
	agg, _ := newTestAggregator(t, clock)

	// Drive the EMA well above the buy threshold.
	for i := 0; i < 40; i++ {
		agg.ProcessBatch([]models.ScoredItem{
			scoredItem("NVDA", models.SentimentPositive, 0.9, clock.Now()),
		})
		clock.Advance(time.Second)
	}
	if sig := agg.SignalFor("NVDA"); sig == nil || sig.Type != models.SignalBuy || sig.Volume != 40 {
		t.Fatalf("signal before eviction %+v", sig)
	}

	// Jump past the horizon; the old entries must leave the window and stop
	// contributing to the sentiment.
	clock.Advance(16 * time.Minute)
	agg.ProcessBatch([]models.ScoredItem{
		scoredItem("NVDA", models.SentimentNeutral, 0.5, clock.Now()),
	})
	sig := agg.SignalFor("NVDA")
	if sig == nil {
		t.Fatal("no current signal")
	}
	if sig.Volume != 1 {
		t.Fatalf("window volume = %d after eviction, want 1", sig.Volume)
	}
	if sig.Sentiment != 0 {
		t.Fatalf("evicted items still drive sentiment: %v", sig.Sentiment)
	}
	if sig.Type != models.SignalHold {
		t.Fatalf("signal type %s from a window holding one neutral item", sig.Type)
	}
}

func TestNoEmissionWithoutChange(t *testing.T) {
	clock := newTestClock()
	cfg := defaultAggConfig()
	cfg.Alpha = 1
	agg := NewSignalAggregator(cfg, newStubMetrics(), testLogger(t), clock.Now)

	first := agg.ProcessBatch([]models.ScoredItem{
		scoredItem("META", models.SentimentPositive, 0.5, clock.Now()),
	})
	if len(first) != 1 {
		t.Fatalf("first update emitted %d signals", len(first))
	}

	// Identical type and rounded strength: suppressed.
	clock.Advance(time.Second)
	repeat := agg.ProcessBatch([]models.ScoredItem{
		scoredItem("META", models.SentimentPositive, 0.5, clock.Now()),
	})
	if len(repeat) != 0 {
		t.Fatalf("unchanged signal re-emitted: %v", repeat)
	}
}

func TestMalformedItemsDiscarded(t *testing.T) {
	clock := newTestClock()
	agg, metrics := newTestAggregator(t, clock)

	bad := []models.ScoredItem{
		{NewsItem: models.NewsItem{ID: "x", Text: "no symbols"}, Sentiment: models.SentimentPositive, Confidence: 0.9},
		{NewsItem: models.NewsItem{ID: "y", Symbols: []string{"AAPL"}}, Sentiment: "euphoric", Confidence: 0.9},
		{NewsItem: models.NewsItem{ID: "z", Symbols: []string{"AAPL"}}, Sentiment: models.SentimentPositive, Confidence: 1.5},
	}
	if sigs := agg.ProcessBatch(bad); len(sigs) != 0 {
		t.Fatalf("malformed items produced signals: %v", sigs)
	}
	if got := metrics.snapshot(); got.errors["aggregation"] != 3 {
		t.Fatalf("aggregation errors = %d, want 3", got.errors["aggregation"])
	}
	if sig := agg.SignalFor("AAPL"); sig != nil {
		t.Fatalf("state corrupted by malformed item: %v", sig)
	}
}

func TestMultiSymbolItemUpdatesEachSymbol(t *testing.T) {
	clock := newTestClock()
	cfg := defaultAggConfig()
	cfg.Alpha = 1
	agg := NewSignalAggregator(cfg, newStubMetrics(), testLogger(t), clock.Now)

	item := scoredItem("AAPL", models.SentimentPositive, 0.9, clock.Now())
	item.Symbols = []string{"AAPL", "MSFT"}
	sigs := agg.ProcessBatch([]models.ScoredItem{item})
	if len(sigs) != 2 {
		t.Fatalf("emitted %d signals, want one per symbol", len(sigs))
	}
	if agg.SignalFor("AAPL") == nil || agg.SignalFor("MSFT") == nil {
		t.Fatal("missing per-symbol state")
	}
}

func TestRecentItemsFilterAndOrder(t *testing.T) {
	clock := newTestClock()
	agg, _ := newTestAggregator(t, clock)

	for i := 0; i < 3; i++ {
		agg.ProcessBatch([]models.ScoredItem{
			scoredItem("AAPL", models.SentimentPositive, 0.9, clock.Now()),
		})
		clock.Advance(time.Second)
	}
	agg.ProcessBatch([]models.ScoredItem{
		scoredItem("GOOGL", models.SentimentNegative, 0.6, clock.Now()),
	})

	all := agg.RecentItems("", 10)
	if len(all) != 4 {
		t.Fatalf("recent = %d items", len(all))
	}
	if all[0].Symbols[0] != "GOOGL" {
		t.Fatalf("newest first violated: %v", all[0].Symbols)
	}

	aapl := agg.RecentItems("AAPL", 10)
	if len(aapl) != 3 {
		t.Fatalf("filtered recent = %d items", len(aapl))
	}
	for _, it := range aapl {
		if it.Symbols[0] != "AAPL" {
			t.Fatalf("filter leaked %v", it.Symbols)
		}
	}
}
