package usecase

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"

	"SentiFlow/internal/domain/models"
	domrepo "SentiFlow/internal/domain/repository"
	"SentiFlow/pkg/logger"
)

// windowEntry is one scored contribution inside a symbol's rolling window.
type windowEntry struct {
	at     time.Time
	signed float64
}

// symbolState is owned by exactly one shard; all access goes through the
// shard mutex, so batch-level parallelism never loses updates.
type symbolState struct {
	window []windowEntry
	ema    float64
	last   *models.Signal
}

type aggShard struct {
	mu     sync.Mutex
	states map[string]*symbolState
}

// AggregatorConfig holds the signal derivation knobs.
type AggregatorConfig struct {
	Window        time.Duration
	Alpha         float64
	ThresholdBuy  float64
	ThresholdSell float64
	Normalizer    float64
	Precision     int
	Shards        int
}

// SignalAggregator maintains rolling per-symbol sentiment state and derives
// BUY/SELL/HOLD signals. State is sharded by symbol so unrelated symbols
// never contend; a signal is emitted only when its type or rounded strength
// differs from the previous one for that symbol.
type SignalAggregator struct {
	cfg     AggregatorConfig
	shards  []*aggShard
	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time

	recentMu sync.Mutex
	recent   []models.ScoredItem
	recentAt int
}

const recentItemsCap = 256

// NewSignalAggregator creates the aggregator.
func NewSignalAggregator(cfg AggregatorConfig, metrics domrepo.Metrics, log *logger.Logger, now func() time.Time) *SignalAggregator {
	if now == nil {
		now = time.Now
	}
	if cfg.Shards <= 0 {
		cfg.Shards = 16
	}
	shards := make([]*aggShard, cfg.Shards)
	for i := range shards {
		shards[i] = &aggShard{states: make(map[string]*symbolState)}
	}
	return &SignalAggregator{
		cfg:     cfg,
		shards:  shards,
		metrics: metrics,
		log:     log,
		now:     now,
		recent:  make([]models.ScoredItem, 0, recentItemsCap),
	}
}

func (a *SignalAggregator) shardFor(symbol string) *aggShard {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return a.shards[h.Sum32()%uint32(len(a.shards))]
}

// ProcessBatch applies a batch of scored items and returns every signal the
// batch newly produced. Malformed items are discarded and counted, never
// applied to state.
func (a *SignalAggregator) ProcessBatch(items []models.ScoredItem) []models.Signal {
	var signals []models.Signal
	for i := range items {
		item := &items[i]
		if err := item.Validate(); err != nil {
			a.metrics.RecordError("aggregation")
			a.log.Debug("scored item discarded",
				logger.String("id", item.ID),
				logger.Error(err),
			)
			continue
		}
		a.remember(*item)
		for _, symbol := range item.Symbols {
			if sig := a.update(symbol, item); sig != nil {
				signals = append(signals, *sig)
			}
		}
	}
	return signals
}

// update applies one (item, symbol) pair and returns a signal when one is
// newly emitted.
func (a *SignalAggregator) update(symbol string, item *models.ScoredItem) *models.Signal {
	shard := a.shardFor(symbol)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	st := shard.states[symbol]
	if st == nil {
		st = &symbolState{}
		shard.states[symbol] = st
	}

	now := a.now()
	st.evict(now.Add(-a.cfg.Window))
	st.window = append(st.window, windowEntry{at: now, signed: item.SignedScore()})
	st.ema = emaOf(st.window, a.cfg.Alpha)

	sig := a.derive(symbol, st, now)
	if !a.changed(st.last, sig) {
		return nil
	}
	st.last = sig
	a.metrics.RecordSignal(symbol, sig.Type, sig.Strength)
	return sig
}

// emaOf folds the smoothing factor over the window in arrival order. The EMA
// is rebuilt from the surviving entries on every update, so a contribution
// stops counting the moment eviction removes it.
func emaOf(w []windowEntry, alpha float64) float64 {
	var ema float64
	for _, e := range w {
		ema = alpha*e.signed + (1-alpha)*ema
	}
	return ema
}

func (st *symbolState) evict(cutoff time.Time) {
	i := 0
	for i < len(st.window) && !st.window[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		st.window = st.window[i:]
	}
}

// derive turns the current window and EMA into a signal.
func (a *SignalAggregator) derive(symbol string, st *symbolState, now time.Time) *models.Signal {
	net := st.ema
	typ := models.SignalHold
	switch {
	case net > a.cfg.ThresholdBuy:
		typ = models.SignalBuy
	case net < a.cfg.ThresholdSell:
		typ = models.SignalSell
	}

	strength := math.Min(1, math.Abs(net)/a.cfg.Normalizer)
	momentum := windowMomentum(st.window)
	volatility := windowVolatility(st.window)

	direction := "neutral"
	if net > 0 {
		direction = "positive"
	} else if net < 0 {
		direction = "negative"
	}

	return &models.Signal{
		Symbol:     symbol,
		Type:       typ,
		Strength:   strength,
		Sentiment:  net,
		Momentum:   momentum,
		Volatility: volatility,
		Volume:     len(st.window),
		Reasoning: fmt.Sprintf("%s sentiment across %d items (net %.2f, momentum %+.2f)",
			direction, len(st.window), net, momentum),
		GeneratedAt: now,
	}
}

// changed reports whether next differs from prev in type or rounded strength.
func (a *SignalAggregator) changed(prev, next *models.Signal) bool {
	if prev == nil {
		return true
	}
	if prev.Type != next.Type {
		return true
	}
	scale := math.Pow(10, float64(a.cfg.Precision))
	return math.Round(prev.Strength*scale) != math.Round(next.Strength*scale)
}

// windowMomentum is the second-half mean minus the first-half mean of the
// signed scores, a cheap trend estimate over the window.
func windowMomentum(w []windowEntry) float64 {
	if len(w) < 2 {
		return 0
	}
	half := len(w) / 2
	var first, second float64
	for i, e := range w {
		if i < half {
			first += e.signed
		} else {
			second += e.signed
		}
	}
	return second/float64(len(w)-half) - first/float64(half)
}

// windowVolatility maps the variance of signed scores into [0, 1].
func windowVolatility(w []windowEntry) float64 {
	if len(w) < 2 {
		return 0
	}
	var sum float64
	for _, e := range w {
		sum += e.signed
	}
	mean := sum / float64(len(w))
	var varsum float64
	for _, e := range w {
		d := e.signed - mean
		varsum += d * d
	}
	variance := varsum / float64(len(w))
	return math.Min(1, variance*10)
}

// CurrentSignals returns the latest signal per symbol, sorted by symbol.
func (a *SignalAggregator) CurrentSignals() []models.Signal {
	var out []models.Signal
	for _, shard := range a.shards {
		shard.mu.Lock()
		for _, st := range shard.states {
			if st.last != nil {
				out = append(out, *st.last)
			}
		}
		shard.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// SignalFor returns the current signal for one symbol, or nil.
func (a *SignalAggregator) SignalFor(symbol string) *models.Signal {
	shard := a.shardFor(symbol)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	st := shard.states[symbol]
	if st == nil || st.last == nil {
		return nil
	}
	sig := *st.last
	return &sig
}

// remember keeps the item in the recent ring served by the news endpoint.
func (a *SignalAggregator) remember(item models.ScoredItem) {
	a.recentMu.Lock()
	defer a.recentMu.Unlock()
	if len(a.recent) < recentItemsCap {
		a.recent = append(a.recent, item)
		return
	}
	a.recent[a.recentAt] = item
	a.recentAt = (a.recentAt + 1) % recentItemsCap
}

// RecentItems returns up to limit recent scored items, newest first,
// optionally filtered by symbol.
func (a *SignalAggregator) RecentItems(symbol string, limit int) []models.ScoredItem {
	a.recentMu.Lock()
	defer a.recentMu.Unlock()

	if limit <= 0 || limit > recentItemsCap {
		limit = recentItemsCap
	}
	out := make([]models.ScoredItem, 0, limit)
	n := len(a.recent)
	for i := 0; i < n && len(out) < limit; i++ {
		// Walk backwards from the newest slot.
		idx := (a.recentAt + n - 1 - i) % n
		it := a.recent[idx]
		if symbol != "" && !hasSymbol(it.Symbols, symbol) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func hasSymbol(symbols []string, want string) bool {
	for _, s := range symbols {
		if s == want {
			return true
		}
	}
	return false
}
