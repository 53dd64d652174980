package repository

import (
	"context"
	"time"

	"SentiFlow/internal/domain/models"
)

// Source yields zero or more raw items per poll. A source may be temporarily
// unavailable without affecting other sources.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.RawItem, error)
}

// Scorer is the external sentiment scoring contract: one result per input
// text, in input order. The call fails wholesale, never partially.
type Scorer interface {
	ScoreBatch(ctx context.Context, texts []string) ([]models.ScoreResult, error)
}

// DedupIndex suppresses items whose id was seen within the dedup horizon.
type DedupIndex interface {
	// Seen records id with the given ttl and reports whether it was
	// already present. The check-and-set is atomic per id.
	Seen(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// Publisher pushes scored items and signals to an external sink.
type Publisher interface {
	PublishUpdate(ctx context.Context, u *models.Update) error
	Close() error
}

// ScoreStore archives scored items and signals in durable storage.
type ScoreStore interface {
	StoreBatch(ctx context.Context, items []models.ScoredItem) error
	StoreSignal(ctx context.Context, s *models.Signal) error
	Close() error
}

// Metrics records pipeline stage transitions.
type Metrics interface {
	RecordIngested(source string, n int)
	RecordDuplicates(n int)
	RecordScored(n int)
	RecordScoringFailures(n int)
	RecordSourceFailure(source string)
	RecordQueueDrop(stage string)
	RecordBroadcastDrop()
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetActiveConnections(n int)
	RecordSignal(symbol string, t models.SignalType, strength float64)
}
