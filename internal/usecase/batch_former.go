package usecase

import (
	"context"
	"time"

	"SentiFlow/internal/domain/models"
)

// BatchFormer accumulates queued items into batches, dispatching on whichever
// fires first: the batch reaching its size cap, or the max wait elapsing
// since the batch's first item arrived. The dual trigger keeps tail latency
// bounded at low traffic without giving up batching efficiency under load.
type BatchFormer struct {
	in       <-chan models.NewsItem
	size     int
	maxWait  time.Duration
	dispatch func(context.Context, []models.NewsItem)
	after    func(time.Duration) <-chan time.Time
}

// BatchOption configures BatchFormer.
type BatchOption func(*BatchFormer)

// WithBatchTimer replaces the wait timer, for deterministic tests.
func WithBatchTimer(after func(time.Duration) <-chan time.Time) BatchOption {
	return func(b *BatchFormer) {
		b.after = after
	}
}

// NewBatchFormer creates the former.
func NewBatchFormer(
	in <-chan models.NewsItem,
	size int,
	maxWait time.Duration,
	dispatch func(context.Context, []models.NewsItem),
	opts ...BatchOption,
) *BatchFormer {
	b := &BatchFormer{
		in:       in,
		size:     size,
		maxWait:  maxWait,
		dispatch: dispatch,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start runs the forming loop until ctx is cancelled.
func (b *BatchFormer) Start(ctx context.Context) {
	go b.run(ctx)
}

func (b *BatchFormer) run(ctx context.Context) {
	var batch []models.NewsItem
	var timer <-chan time.Time

	flush := func() {
		if len(batch) == 0 {
			return
		}
		b.dispatch(ctx, batch)
		batch = nil
		timer = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case item, ok := <-b.in:
			if !ok {
				flush()
				return
			}
			if len(batch) == 0 {
				timer = b.after(b.maxWait)
			}
			batch = append(batch, item)
			if len(batch) >= b.size {
				flush()
			}
		case <-timer:
			flush()
		}
	}
}
