package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SentiFlow/internal/domain/models"
	"SentiFlow/internal/domain/repository"
)

// ScoreSchema holds the idempotent DDL for the archive tables.
var ScoreSchema = []string{
	`CREATE TABLE IF NOT EXISTS sentiment_scores (
		ts DateTime,
		id String,
		symbol String,
		source String,
		sentiment String,
		confidence Float64,
		text String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(ts)
	ORDER BY (symbol, ts)
	TTL ts + INTERVAL 30 DAY`,
	`CREATE TABLE IF NOT EXISTS trading_signals (
		ts DateTime,
		symbol String,
		type String,
		strength Float64,
		score Float64,
		momentum Float64,
		volume UInt32,
		reasoning String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(ts)
	ORDER BY (symbol, ts)
	TTL ts + INTERVAL 90 DAY`,
}

// ClickHouseStore implements ScoreStore for ClickHouse. Scored items fan out
// to one row per tagged symbol so per-symbol queries stay index-friendly.
type ClickHouseStore struct {
	db *sql.DB
}

// NewClickHouseStore creates ClickHouse score store.
func NewClickHouseStore(db *sql.DB) repository.ScoreStore {
	return &ClickHouseStore{db: db}
}

func (s *ClickHouseStore) StoreBatch(ctx context.Context, items []models.ScoredItem) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]string, 0, len(items))
	args := make([]interface{}, 0, len(items)*7)
	for i := range items {
		it := &items[i]
		for _, sym := range it.Symbols {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				it.IngestedAt,
				it.ID,
				sym,
				it.Source,
				string(it.Sentiment),
				it.Confidence,
				it.Text,
			)
		}
	}
	if len(values) == 0 {
		return nil
	}
	q := "INSERT INTO sentiment_scores (ts, id, symbol, source, sentiment, confidence, text) VALUES " + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store scores: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) StoreSignal(ctx context.Context, sig *models.Signal) error {
	q := "INSERT INTO trading_signals (ts, symbol, type, strength, score, momentum, volume, reasoning) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := s.db.ExecContext(ctx, q,
		sig.GeneratedAt,
		sig.Symbol,
		string(sig.Type),
		sig.Strength,
		sig.Sentiment,
		sig.Momentum,
		uint32(sig.Volume),
		sig.Reasoning,
	)
	if err != nil {
		return fmt.Errorf("store signal: %w", err)
	}
	return nil
}

// QuerySignals returns archived signals for a symbol, newest first.
func (s *ClickHouseStore) QuerySignals(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Signal, error) {
	q := `SELECT ts, symbol, type, strength, score, momentum, volume, reasoning
		FROM trading_signals WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var sig models.Signal
		var typ string
		var vol uint32
		if err := rows.Scan(&sig.GeneratedAt, &sig.Symbol, &typ, &sig.Strength, &sig.Sentiment, &sig.Momentum, &vol, &sig.Reasoning); err != nil {
			return nil, err
		}
		sig.Type = models.SignalType(typ)
		sig.Volume = int(vol)
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStore) Close() error {
	return nil // pool owned by pkg client
}
