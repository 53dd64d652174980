package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Sentiment is the label produced by the scoring function.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// RawItem is what an ingestion source yields per poll.
type RawItem struct {
	Text        string
	SourceName  string
	PublishedAt time.Time
}

// NewsItem is an ingested, deduplicated text item. Immutable once created.
type NewsItem struct {
	ID         string    `json:"id"`
	Symbols    []string  `json:"symbols"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	IngestedAt time.Time `json:"ingested_at"`
}

// DedupID computes the content hash used for deduplication: normalized text + source.
func DedupID(text, source string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(norm + "|" + source))
	return hex.EncodeToString(sum[:16])
}

// ScoreResult is one entry of a batched scoring response, in input order.
type ScoreResult struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Entities   []string  `json:"entities"`
}

// ScoredItem is a NewsItem plus its scoring result. Immutable once created.
type ScoredItem struct {
	NewsItem
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Entities   []string  `json:"entities"`
}

// SignedScore maps the sentiment label to a signed contribution in [-1, 1].
func (s *ScoredItem) SignedScore() float64 {
	switch s.Sentiment {
	case SentimentPositive:
		return s.Confidence
	case SentimentNegative:
		return -s.Confidence
	default:
		return 0
	}
}

// Validate rejects malformed scored items before they reach aggregation state.
func (s *ScoredItem) Validate() error {
	if len(s.Symbols) == 0 {
		return ErrNoSymbols
	}
	if !s.Sentiment.Valid() {
		return ErrBadSentiment
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return ErrBadConfidence
	}
	return nil
}
