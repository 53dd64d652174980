package usecase

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"SentiFlow/internal/domain/models"
	domrepo "SentiFlow/internal/domain/repository"
	"SentiFlow/internal/service/sources"
	"SentiFlow/pkg/logger"
	"SentiFlow/pkg/queue"
)

// sourceState tracks per-source failure accounting. Guarded by the
// scheduler mutex.
type sourceState struct {
	consecutiveFails int
	degraded         bool
	nextEligible     time.Time
}

// IngestScheduler polls the configured sources on a fixed interval,
// deduplicates fetched items against the dedup index, and enqueues the
// survivors. A failing source backs off exponentially with jitter and never
// blocks its peers; the queue drops the newest item when full.
type IngestScheduler struct {
	sources []domrepo.Source
	dedup   domrepo.DedupIndex
	metrics domrepo.Metrics
	log     *logger.Logger

	interval      time.Duration
	horizon       time.Duration
	fetchTimeout  time.Duration
	backoffBase   time.Duration
	backoffCap    time.Duration
	degradedAfter int

	out *queue.Bounded[models.NewsItem]
	now func() time.Time

	mu     sync.Mutex
	states map[string]*sourceState
}

// IngestOption configures IngestScheduler.
type IngestOption func(*IngestScheduler)

// WithIngestClock replaces the wall clock, for deterministic tests.
func WithIngestClock(now func() time.Time) IngestOption {
	return func(s *IngestScheduler) {
		s.now = now
	}
}

// WithIngestBackoff sets the per-source backoff policy.
func WithIngestBackoff(base, cap time.Duration, degradedAfter int) IngestOption {
	return func(s *IngestScheduler) {
		s.backoffBase = base
		s.backoffCap = cap
		s.degradedAfter = degradedAfter
	}
}

// WithIngestFetchTimeout bounds a single source fetch.
func WithIngestFetchTimeout(d time.Duration) IngestOption {
	return func(s *IngestScheduler) {
		s.fetchTimeout = d
	}
}

// NewIngestScheduler creates the scheduler.
func NewIngestScheduler(
	srcs []domrepo.Source,
	dedup domrepo.DedupIndex,
	metrics domrepo.Metrics,
	log *logger.Logger,
	interval, horizon time.Duration,
	queueSize int,
	opts ...IngestOption,
) *IngestScheduler {
	s := &IngestScheduler{
		sources:       srcs,
		dedup:         dedup,
		metrics:       metrics,
		log:           log,
		interval:      interval,
		horizon:       horizon,
		fetchTimeout:  10 * time.Second,
		backoffBase:   500 * time.Millisecond,
		backoffCap:    time.Minute,
		degradedAfter: 5,
		out:           queue.NewBounded[models.NewsItem](queueSize, queue.WithPolicy[models.NewsItem](queue.DropNewest)),
		now:           time.Now,
		states:        make(map[string]*sourceState),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, src := range s.sources {
		s.states[src.Name()] = &sourceState{}
	}
	return s
}

// Out is the deduplicated item stream consumed by the batch former.
func (s *IngestScheduler) Out() <-chan models.NewsItem {
	return s.out.C()
}

// Start runs the poll loop until ctx is cancelled.
func (s *IngestScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.Poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Poll(ctx)
			}
		}
	}()
}

// Poll fetches every eligible source once. Sources run concurrently so one
// slow fetch cannot starve the rest of the tick.
func (s *IngestScheduler) Poll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, src := range s.sources {
		if !s.eligible(src.Name()) {
			continue
		}
		wg.Add(1)
		go func(src domrepo.Source) {
			defer wg.Done()
			s.pollSource(ctx, src)
		}(src)
	}
	wg.Wait()
}

func (s *IngestScheduler) eligible(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[name]
	return st == nil || !s.now().Before(st.nextEligible)
}

func (s *IngestScheduler) pollSource(ctx context.Context, src domrepo.Source) {
	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	items, err := src.Fetch(fctx)
	if err != nil {
		s.recordFailure(src.Name(), err)
		return
	}
	s.recordSuccess(src.Name())

	ingested := 0
	for _, raw := range items {
		if raw.Text == "" {
			continue
		}
		id := models.DedupID(raw.Text, raw.SourceName)
		seen, err := s.dedup.Seen(ctx, id, s.horizon)
		if err != nil {
			// Index trouble fails open: scoring a duplicate beats
			// silently losing an item.
			s.metrics.RecordError("dedup")
		} else if seen {
			s.metrics.RecordDuplicates(1)
			continue
		}
		item := models.NewsItem{
			ID:         id,
			Symbols:    sources.ExtractSymbols(raw.Text),
			Text:       raw.Text,
			Source:     raw.SourceName,
			IngestedAt: s.now(),
		}
		if dropped := s.out.Push(item); dropped {
			s.metrics.RecordQueueDrop("ingest")
			continue
		}
		ingested++
	}
	if ingested > 0 {
		s.metrics.RecordIngested(src.Name(), ingested)
	}
}

func (s *IngestScheduler) recordFailure(name string, err error) {
	s.metrics.RecordSourceFailure(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[name]
	if st == nil {
		st = &sourceState{}
		s.states[name] = st
	}
	st.consecutiveFails++
	if st.consecutiveFails >= s.degradedAfter && !st.degraded {
		st.degraded = true
		s.log.Warn("source degraded",
			logger.String("source", name),
			logger.Int("consecutive_failures", st.consecutiveFails),
		)
	}

	delay := s.backoffDelay(st)
	st.nextEligible = s.now().Add(delay)
	s.log.Debug("source fetch failed",
		logger.String("source", name),
		logger.Error(err),
		logger.Duration("backoff", delay),
	)
}

func (s *IngestScheduler) recordSuccess(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[name]
	if st == nil {
		return
	}
	if st.degraded {
		s.log.Info("source recovered", logger.String("source", name))
	}
	st.consecutiveFails = 0
	st.degraded = false
	st.nextEligible = time.Time{}
}

// backoffDelay computes min(cap, base<<fails) with up to 50% jitter; a
// degraded source sits at double the cap until it succeeds once.
func (s *IngestScheduler) backoffDelay(st *sourceState) time.Duration {
	if st.degraded {
		return 2 * s.backoffCap
	}
	delay := s.backoffBase
	for i := 1; i < st.consecutiveFails; i++ {
		delay *= 2
		if delay >= s.backoffCap {
			delay = s.backoffCap
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	delay += jitter
	if delay > s.backoffCap {
		delay = s.backoffCap
	}
	return delay
}

// Degraded reports whether a source is currently marked degraded.
func (s *IngestScheduler) Degraded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[name]
	return st != nil && st.degraded
}

// QueueDrops returns how many items the ingestion queue refused.
func (s *IngestScheduler) QueueDrops() int64 {
	return s.out.Drops()
}
