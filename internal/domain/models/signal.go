package models

import (
	"errors"
	"time"
)

var (
	ErrNoSymbols     = errors.New("scored item has no symbol tags")
	ErrBadSentiment  = errors.New("unknown sentiment label")
	ErrBadConfidence = errors.New("confidence out of [0,1]")
)

// SignalType is the derived trading recommendation.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// Signal is a per-symbol trading recommendation. Immutable; superseded by later
// signals for the same symbol, never mutated.
type Signal struct {
	Symbol      string     `json:"symbol"`
	Type        SignalType `json:"type"`
	Strength    float64    `json:"strength"`
	Sentiment   float64    `json:"sentiment_score"`
	Momentum    float64    `json:"momentum"`
	Volatility  float64    `json:"volatility_prediction"`
	Volume      int        `json:"volume"`
	Reasoning   string     `json:"reasoning"`
	GeneratedAt time.Time  `json:"generated_at"`
}
