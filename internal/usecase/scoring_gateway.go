package usecase

import (
	"context"
	"fmt"
	"time"

	"SentiFlow/internal/domain/models"
	domrepo "SentiFlow/internal/domain/repository"
	"SentiFlow/pkg/logger"
)

// ScoringGateway wraps the external scorer with a per-call timeout and
// failure isolation. A failed or timed-out call drops the whole batch, counts
// each item as a scoring failure, and lets the pipeline continue; items are
// never retried since a stale score is worse than none.
type ScoringGateway struct {
	scorer  domrepo.Scorer
	timeout time.Duration
	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewScoringGateway creates the gateway.
func NewScoringGateway(scorer domrepo.Scorer, timeout time.Duration, metrics domrepo.Metrics, log *logger.Logger, now func() time.Time) *ScoringGateway {
	if now == nil {
		now = time.Now
	}
	return &ScoringGateway{
		scorer:  scorer,
		timeout: timeout,
		metrics: metrics,
		log:     log,
		now:     now,
	}
}

// ScoreBatch scores a batch of items. On failure it returns nil; the caller
// moves on to the next batch.
func (g *ScoringGateway) ScoreBatch(ctx context.Context, items []models.NewsItem) []models.ScoredItem {
	if len(items) == 0 {
		return nil
	}

	texts := make([]string, len(items))
	for i := range items {
		texts[i] = items[i].Text
	}

	start := g.now()
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := g.scorer.ScoreBatch(cctx, texts)
	if err != nil {
		g.metrics.RecordScoringFailures(len(items))
		g.log.Warn("scoring batch dropped",
			logger.Int("items", len(items)),
			logger.Error(err),
		)
		return nil
	}
	// The contract is one result per input; a scorer violating it fails the
	// whole batch rather than panicking below.
	if len(results) != len(items) {
		g.metrics.RecordScoringFailures(len(items))
		g.log.Warn("scoring batch dropped",
			logger.Int("items", len(items)),
			logger.Int("results", len(results)),
		)
		return nil
	}
	g.metrics.RecordLatency("scoring", g.now().Sub(start).Seconds())

	scored := make([]models.ScoredItem, 0, len(items))
	for i := range items {
		s := models.ScoredItem{
			NewsItem:   items[i],
			Sentiment:  results[i].Sentiment,
			Confidence: results[i].Confidence,
			Entities:   results[i].Entities,
		}
		scored = append(scored, s)
		g.metrics.RecordLatency("e2e", g.now().Sub(items[i].IngestedAt).Seconds())
	}
	g.metrics.RecordScored(len(scored))
	return scored
}

// ScoreText scores a single ad-hoc text outside the pipeline, for the
// analyze endpoint. Unlike batch scoring, the error surfaces to the caller.
func (g *ScoringGateway) ScoreText(ctx context.Context, text, source string) (*models.ScoredItem, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := g.scorer.ScoreBatch(cctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("scorer returned %d results for one text", len(results))
	}
	item := models.NewsItem{
		ID:         models.DedupID(text, source),
		Text:       text,
		Source:     source,
		IngestedAt: g.now(),
	}
	return &models.ScoredItem{
		NewsItem:   item,
		Sentiment:  results[0].Sentiment,
		Confidence: results[0].Confidence,
		Entities:   results[0].Entities,
	}, nil
}
