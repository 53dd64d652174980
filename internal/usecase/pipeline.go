package usecase

import (
	"context"
	"time"

	"SentiFlow/internal/domain/models"
	domrepo "SentiFlow/internal/domain/repository"
	"SentiFlow/pkg/logger"
)

// UpdateSink receives assembled updates for fan-out to subscribers.
type UpdateSink interface {
	Broadcast(u models.Update)
}

// Pipeline wires the stages together: scheduler output feeds the batch
// former, batches go through the scoring gateway into the aggregator, and
// the resulting update fans out to subscribers and the external sinks.
type Pipeline struct {
	scheduler  *IngestScheduler
	former     *BatchFormer
	gateway    *ScoringGateway
	aggregator *SignalAggregator

	sink      UpdateSink
	publisher domrepo.Publisher
	store     domrepo.ScoreStore
	log       *logger.Logger
}

// NewPipeline assembles the pipeline. publisher and store may be nil when the
// corresponding sink is disabled.
func NewPipeline(
	scheduler *IngestScheduler,
	gateway *ScoringGateway,
	aggregator *SignalAggregator,
	sink UpdateSink,
	publisher domrepo.Publisher,
	store domrepo.ScoreStore,
	batchSize int,
	maxWait time.Duration,
	log *logger.Logger,
) *Pipeline {
	p := &Pipeline{
		scheduler:  scheduler,
		gateway:    gateway,
		aggregator: aggregator,
		sink:       sink,
		publisher:  publisher,
		store:      store,
		log:        log,
	}
	p.former = NewBatchFormer(scheduler.Out(), batchSize, maxWait, p.handleBatch)
	return p
}

// Start launches all stages. They stop when ctx is cancelled; in-flight
// batches drain within the scoring timeout.
func (p *Pipeline) Start(ctx context.Context) {
	p.scheduler.Start(ctx)
	p.former.Start(ctx)
}

func (p *Pipeline) handleBatch(ctx context.Context, items []models.NewsItem) {
	scored := p.gateway.ScoreBatch(ctx, items)
	if len(scored) == 0 {
		return
	}

	signals := p.aggregator.ProcessBatch(scored)
	update := models.Update{Results: scored, Signals: signals}

	if p.sink != nil {
		p.sink.Broadcast(update)
	}
	if p.publisher != nil {
		if err := p.publisher.PublishUpdate(ctx, &update); err != nil {
			p.log.Warn("publish update", logger.Error(err))
		}
	}
	if p.store != nil {
		if err := p.store.StoreBatch(ctx, scored); err != nil {
			p.log.Warn("archive scores", logger.Error(err))
		}
		for i := range signals {
			if err := p.store.StoreSignal(ctx, &signals[i]); err != nil {
				p.log.Warn("archive signal", logger.Error(err))
			}
		}
	}
}

// Aggregator exposes the aggregator for the read-side endpoints.
func (p *Pipeline) Aggregator() *SignalAggregator {
	return p.aggregator
}

// Gateway exposes the scoring gateway for ad-hoc analysis.
func (p *Pipeline) Gateway() *ScoringGateway {
	return p.gateway
}

// Scheduler exposes the ingest scheduler.
func (p *Pipeline) Scheduler() *IngestScheduler {
	return p.scheduler
}
