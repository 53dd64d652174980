package stats

import (
	"testing"

	"SentiFlow/internal/domain/models"
)

func TestSnapshotCounters(t *testing.T) {
	r := NewRegistry(nil)
	r.RecordIngested("feed-a", 10)
	r.RecordIngested("feed-b", 5)
	r.RecordDuplicates(3)
	r.RecordScored(12)
	r.RecordScoringFailures(10)
	r.RecordSourceFailure("feed-b")
	r.RecordBroadcastDrop()
	r.SetActiveConnections(4)

	s := r.Snapshot()
	if s.ItemsIngested != 15 {
		t.Fatalf("items ingested: %d", s.ItemsIngested)
	}
	if s.DuplicatesDropped != 3 || s.ItemsScored != 12 || s.ScoringFailures != 10 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if s.SourceFailures != 1 || s.BroadcastDrops != 1 || s.ActiveConnections != 4 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
}

func TestRollingLatency(t *testing.T) {
	r := NewRegistry(nil)
	r.RecordLatency("e2e", 0.010)
	r.RecordLatency("e2e", 0.030)
	r.RecordLatency("scoring", 99) // different op, must not pollute e2e average

	s := r.Snapshot()
	if s.AverageLatencyMs < 19.9 || s.AverageLatencyMs > 20.1 {
		t.Fatalf("expected ~20ms average, got %v", s.AverageLatencyMs)
	}
}

func TestSignalSet(t *testing.T) {
	r := NewRegistry(nil)
	r.RecordSignal("AAPL", models.SignalBuy, 0.8)
	r.RecordSignal("AAPL", models.SignalHold, 0.2)

	s := r.Snapshot()
	entry, ok := s.Signals["AAPL"]
	if !ok || entry.Type != models.SignalHold {
		t.Fatalf("expected latest signal to win: %+v", s.Signals)
	}
}
