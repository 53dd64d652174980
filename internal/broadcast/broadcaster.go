package broadcast

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"SentiFlow/internal/domain/models"
	domrepo "SentiFlow/internal/domain/repository"
	"SentiFlow/internal/service/ratelimit"
	"SentiFlow/pkg/logger"
)

// Config holds the fan-out knobs.
type Config struct {
	QueueSize     int
	SendTimeout   time.Duration
	PingRateLimit float64
}

// Broadcaster owns the subscriber registry and fans updates out to every
// connection whose filter matches. Sends go through per-connection queues and
// writer goroutines, so one slow socket never delays the rest.
type Broadcaster struct {
	cfg     Config
	metrics domrepo.Metrics
	log     *logger.Logger
	limiter *ratelimit.Limiter
	now     func() time.Time

	mu     sync.RWMutex
	subs   map[string]*Subscriber
	nextID atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the broadcaster.
func New(cfg Config, metrics domrepo.Metrics, log *logger.Logger, now func() time.Time) *Broadcaster {
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broadcaster{
		cfg:     cfg,
		metrics: metrics,
		log:     log,
		limiter: ratelimit.New(),
		now:     now,
		subs:    make(map[string]*Subscriber),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handle runs a connection to completion: registers it, starts its writer,
// and reads client frames until the transport closes. Call from the WS
// handler goroutine.
func (b *Broadcaster) Handle(conn Conn) {
	sub := newSubscriber(fmt.Sprintf("c%d", b.nextID.Add(1)), conn, b.cfg.QueueSize)
	sub.setState(StateConnecting)

	b.register(sub)
	defer b.Remove(sub)

	go b.writeLoop(sub)

	sub.enqueue(models.ServerMessage{
		Type:      models.MsgConnectionEstablished,
		Timestamp: b.now(),
		Message:   "connected to sentiment feed",
	})
	sub.setState(StateEstablished)

	b.readLoop(sub)
}

func (b *Broadcaster) register(sub *Subscriber) {
	b.mu.Lock()
	b.subs[sub.id] = sub
	n := len(b.subs)
	b.mu.Unlock()

	b.metrics.SetActiveConnections(n)
	b.log.Info("subscriber connected",
		logger.String("connection_id", sub.id),
		logger.Int("active", n),
	)
}

// Remove transitions the subscriber to Closed and drops it from the
// registry. Safe to call more than once.
func (b *Broadcaster) Remove(sub *Subscriber) {
	if sub.State() == StateClosed {
		return
	}
	sub.setState(StateClosing)

	b.mu.Lock()
	_, present := b.subs[sub.id]
	delete(b.subs, sub.id)
	n := len(b.subs)
	b.mu.Unlock()

	sub.setState(StateClosed)
	_ = sub.conn.Close()
	b.limiter.Forget(sub.id)

	if present {
		b.metrics.SetActiveConnections(n)
		b.log.Info("subscriber disconnected",
			logger.String("connection_id", sub.id),
			logger.Int("active", n),
		)
	}
}

// Broadcast fans the update out to the subscribers whose filter it passes.
// Each subscriber gets its own view of the update, holding only the entries
// its filter admits. The registry snapshot is taken under the read lock;
// filtering and enqueueing happen outside it.
func (b *Broadcaster) Broadcast(u models.Update) {
	b.mu.RLock()
	subs := make([]*Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	ts := b.now()
	for _, sub := range subs {
		view, ok := sub.filterUpdate(u)
		if !ok {
			continue
		}
		msg := models.ServerMessage{
			Type:      models.MsgSentimentUpdate,
			Timestamp: ts,
			Results:   view.Results,
			Signals:   view.Signals,
		}
		if evicted := sub.enqueue(msg); evicted {
			b.metrics.RecordBroadcastDrop()
		}
	}
}

// ActiveConnections returns the subscriber count.
func (b *Broadcaster) ActiveConnections() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown closes every connection and stops the writers.
func (b *Broadcaster) Shutdown() {
	b.cancel()

	b.mu.Lock()
	subs := make([]*Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		b.Remove(sub)
	}
}

// readLoop consumes client frames until the transport errors. Malformed
// frames and unknown types are ignored; the connection survives them.
func (b *Broadcaster) readLoop(sub *Subscriber) {
	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := models.ParseClientMessage(data)
		if err != nil {
			b.log.Debug("malformed client frame",
				logger.String("connection_id", sub.id),
				logger.Error(err),
			)
			continue
		}
		if !msg.Known() {
			continue
		}
		if !b.limiter.Allow(sub.id, b.cfg.PingRateLimit*2, b.cfg.PingRateLimit) {
			continue
		}

		switch msg.Type {
		case models.MsgSubscribe:
			sub.setFilter(msg.Symbols)
			sub.enqueue(models.ServerMessage{
				Type:      models.MsgSubscriptionConfirmed,
				Timestamp: b.now(),
				Symbols:   msg.Symbols,
			})
			b.log.Debug("subscription updated",
				logger.String("connection_id", sub.id),
				logger.Strings("symbols", msg.Symbols),
				logger.Int("epoch", sub.Epoch()),
			)
		case models.MsgPing:
			sub.enqueue(models.ServerMessage{
				Type:      models.MsgPong,
				Timestamp: b.now(),
			})
		}
	}
}

// writeLoop drains the outbound queue onto the socket. A write error or
// missed deadline removes the subscriber; peers are unaffected.
func (b *Broadcaster) writeLoop(sub *Subscriber) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg := <-sub.out.C():
			if err := sub.conn.SetWriteDeadline(time.Now().Add(b.cfg.SendTimeout)); err != nil {
				b.Remove(sub)
				return
			}
			if err := sub.conn.WriteJSON(msg); err != nil {
				b.metrics.RecordError("broadcast_write")
				b.Remove(sub)
				return
			}
		}
	}
}
