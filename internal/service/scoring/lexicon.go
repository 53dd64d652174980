package scoring

import (
	"context"
	"math"
	"strings"

	"SentiFlow/internal/domain/models"
	"SentiFlow/internal/service/sources"
)

var bullishTerms = map[string]float64{
	"surge": 1, "surges": 1, "rally": 1, "rallies": 1, "beats": 1,
	"bullish": 1, "breakout": 0.8, "upgrade": 0.8, "record": 0.6,
	"growth": 0.6, "partnership": 0.5, "strong": 0.5, "gains": 0.8,
	"soars": 1, "profit": 0.6,
}

var bearishTerms = map[string]float64{
	"plunge": 1, "plunges": 1, "crash": 1, "misses": 1, "bearish": 1,
	"downgrade": 0.8, "scrutiny": 0.7, "recall": 0.7, "lawsuit": 0.7,
	"uncertainty": 0.6, "cautious": 0.5, "weak": 0.5, "losses": 0.8,
	"layoffs": 0.8, "volatility": 0.4,
}

// LexiconScorer scores texts with a term-weight lexicon. Deterministic and
// dependency-free, it backs demo runs and environments without the model
// service. Results follow the same one-per-input contract as the remote
// scorer.
type LexiconScorer struct{}

// NewLexiconScorer creates the local scorer.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{}
}

func (s *LexiconScorer) ScoreBatch(ctx context.Context, texts []string) ([]models.ScoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]models.ScoreResult, len(texts))
	for i, text := range texts {
		results[i] = scoreOne(text)
	}
	return results, nil
}

func scoreOne(text string) models.ScoreResult {
	var pos, neg float64
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?:;()'\"")
		if v, ok := bullishTerms[w]; ok {
			pos += v
		}
		if v, ok := bearishTerms[w]; ok {
			neg += v
		}
	}

	res := models.ScoreResult{
		Sentiment:  models.SentimentNeutral,
		Confidence: 0.5,
		Entities:   sources.ExtractSymbols(text),
	}
	total := pos + neg
	if total == 0 {
		return res
	}

	// Net lean scaled by evidence mass; saturates toward 0.95.
	lean := (pos - neg) / total
	conf := 0.5 + 0.45*math.Abs(lean)*math.Min(1, total/2)
	switch {
	case lean > 0.15:
		res.Sentiment = models.SentimentPositive
		res.Confidence = conf
	case lean < -0.15:
		res.Sentiment = models.SentimentNegative
		res.Confidence = conf
	default:
		res.Confidence = 0.5
	}
	return res
}
