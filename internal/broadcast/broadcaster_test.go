package broadcast

import (
	"errors"
	"sync"
	"testing"
	"time"

	"SentiFlow/internal/domain/models"
	"SentiFlow/pkg/logger"
)

// fakeConn is an in-memory Conn: client frames are fed through a channel and
// written messages are captured.
type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu       sync.Mutex
	written  []models.ServerMessage
	writeErr error
	blockFor time.Duration
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.inbound:
		return 1, data, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	blockFor, writeErr := c.blockFor, c.writeErr
	c.mu.Unlock()

	if blockFor > 0 {
		time.Sleep(blockFor)
	}
	if writeErr != nil {
		return writeErr
	}

	msg, ok := v.(models.ServerMessage)
	if !ok {
		return errors.New("unexpected payload type")
	}
	c.mu.Lock()
	c.written = append(c.written, msg)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) messages() []models.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ServerMessage, len(c.written))
	copy(out, c.written)
	return out
}

func (c *fakeConn) messagesOfType(typ string) []models.ServerMessage {
	var out []models.ServerMessage
	for _, m := range c.messages() {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

// nullMetrics satisfies the metrics interface for tests that don't assert on it.
type nullMetrics struct {
	mu             sync.Mutex
	broadcastDrops int
	active         int
}

func (m *nullMetrics) RecordIngested(string, int)                      {}
func (m *nullMetrics) RecordDuplicates(int)                            {}
func (m *nullMetrics) RecordScored(int)                                {}
func (m *nullMetrics) RecordScoringFailures(int)                       {}
func (m *nullMetrics) RecordSourceFailure(string)                      {}
func (m *nullMetrics) RecordQueueDrop(string)                          {}
func (m *nullMetrics) RecordError(string)                              {}
func (m *nullMetrics) RecordLatency(string, float64)                   {}
func (m *nullMetrics) RecordSignal(string, models.SignalType, float64) {}

func (m *nullMetrics) RecordBroadcastDrop() {
	m.mu.Lock()
	m.broadcastDrops++
	m.mu.Unlock()
}

func (m *nullMetrics) SetActiveConnections(n int) {
	m.mu.Lock()
	m.active = n
	m.mu.Unlock()
}

func (m *nullMetrics) drops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcastDrops
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func testConfig() Config {
	return Config{QueueSize: 32, SendTimeout: time.Second, PingRateLimit: 100}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func startConn(b *Broadcaster) *fakeConn {
	conn := newFakeConn()
	go b.Handle(conn)
	return conn
}

func update(symbol string) models.Update {
	return models.Update{
		Results: []models.ScoredItem{{
			NewsItem: models.NewsItem{
				ID:      "u-" + symbol,
				Symbols: []string{symbol},
				Text:    symbol + " headline",
				Source:  "wire",
			},
			Sentiment:  models.SentimentPositive,
			Confidence: 0.9,
		}},
	}
}

func TestConnectionEstablishedOnConnect(t *testing.T) {
	b := New(testConfig(), &nullMetrics{}, testLogger(t), nil)
	defer b.Shutdown()

	conn := startConn(b)
	eventually(t, func() bool {
		return len(conn.messagesOfType(models.MsgConnectionEstablished)) == 1
	}, "no connection_established frame")
}

func TestPingPong(t *testing.T) {
	b := New(testConfig(), &nullMetrics{}, testLogger(t), nil)
	defer b.Shutdown()

	conn := startConn(b)
	conn.inbound <- []byte(`{"type":"ping"}`)
	eventually(t, func() bool {
		return len(conn.messagesOfType(models.MsgPong)) == 1
	}, "no pong reply")
}

func TestSubscribeFilterCorrectness(t *testing.T) {
	b := New(testConfig(), &nullMetrics{}, testLogger(t), nil)
	defer b.Shutdown()

	aapl := startConn(b)
	all := startConn(b)
	idle := startConn(b)

	aapl.inbound <- []byte(`{"type":"subscribe","symbols":["AAPL"]}`)
	all.inbound <- []byte(`{"type":"subscribe","symbols":["*"]}`)
	eventually(t, func() bool {
		return len(aapl.messagesOfType(models.MsgSubscriptionConfirmed)) == 1 &&
			len(all.messagesOfType(models.MsgSubscriptionConfirmed)) == 1
	}, "subscriptions not confirmed")

	b.Broadcast(update("GOOGL"))
	b.Broadcast(update("AAPL"))

	eventually(t, func() bool {
		return len(all.messagesOfType(models.MsgSentimentUpdate)) == 2
	}, "wildcard subscriber missed updates")

	got := aapl.messagesOfType(models.MsgSentimentUpdate)
	if len(got) != 1 {
		t.Fatalf("AAPL subscriber got %d updates, want 1", len(got))
	}
	if got[0].Results[0].Symbols[0] != "AAPL" {
		t.Fatalf("filter leaked %v", got[0].Results[0].Symbols)
	}
	if n := len(idle.messagesOfType(models.MsgSentimentUpdate)); n != 0 {
		t.Fatalf("unsubscribed connection received %d updates", n)
	}
}

func TestMixedBatchDeliversPerSubscriberView(t *testing.T) {
	b := New(testConfig(), &nullMetrics{}, testLogger(t), nil)
	defer b.Shutdown()

	aapl := startConn(b)
	all := startConn(b)
	aapl.inbound <- []byte(`{"type":"subscribe","symbols":["AAPL"]}`)
	all.inbound <- []byte(`{"type":"subscribe","symbols":["*"]}`)
	eventually(t, func() bool {
		return len(aapl.messagesOfType(models.MsgSubscriptionConfirmed)) == 1 &&
			len(all.messagesOfType(models.MsgSubscriptionConfirmed)) == 1
	}, "subscriptions not confirmed")

	// One batch touching both symbols, plus a GOOGL-only signal.
	mixed := models.Update{
		Results: append(update("AAPL").Results, update("GOOGL").Results...),
		Signals: []models.Signal{{Symbol: "GOOGL", Type: models.SignalBuy, Strength: 0.7}},
	}
	b.Broadcast(mixed)

	eventually(t, func() bool {
		return len(aapl.messagesOfType(models.MsgSentimentUpdate)) == 1 &&
			len(all.messagesOfType(models.MsgSentimentUpdate)) == 1
	}, "mixed batch not delivered")

	got := aapl.messagesOfType(models.MsgSentimentUpdate)[0]
	if len(got.Results) != 1 || got.Results[0].Symbols[0] != "AAPL" {
		t.Fatalf("AAPL view holds foreign results: %+v", got.Results)
	}
	if len(got.Signals) != 0 {
		t.Fatalf("AAPL view holds foreign signals: %+v", got.Signals)
	}

	whole := all.messagesOfType(models.MsgSentimentUpdate)[0]
	if len(whole.Results) != 2 || len(whole.Signals) != 1 {
		t.Fatalf("wildcard view was trimmed: %d results, %d signals", len(whole.Results), len(whole.Signals))
	}
}

func TestEmptySubscribeClearsFilter(t *testing.T) {
	b := New(testConfig(), &nullMetrics{}, testLogger(t), nil)
	defer b.Shutdown()

	conn := startConn(b)
	conn.inbound <- []byte(`{"type":"subscribe","symbols":["AAPL"]}`)
	eventually(t, func() bool {
		return len(conn.messagesOfType(models.MsgSubscriptionConfirmed)) == 1
	}, "subscribe not confirmed")

	conn.inbound <- []byte(`{"type":"subscribe","symbols":[]}`)
	eventually(t, func() bool {
		return len(conn.messagesOfType(models.MsgSubscriptionConfirmed)) == 2
	}, "unsubscribe not confirmed")

	b.Broadcast(update("AAPL"))
	time.Sleep(50 * time.Millisecond)
	if n := len(conn.messagesOfType(models.MsgSentimentUpdate)); n != 0 {
		t.Fatalf("cleared filter still received %d updates", n)
	}
}

func TestUnknownAndMalformedFramesIgnored(t *testing.T) {
	b := New(testConfig(), &nullMetrics{}, testLogger(t), nil)
	defer b.Shutdown()

	conn := startConn(b)
	conn.inbound <- []byte(`{"type":"dance"}`)
	conn.inbound <- []byte(`not json at all`)
	conn.inbound <- []byte(`{"type":"ping"}`)

	// The connection survives both bad frames.
	eventually(t, func() bool {
		return len(conn.messagesOfType(models.MsgPong)) == 1
	}, "connection died on ignorable frames")
}

func TestSlowConsumerIsolation(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 4
	metrics := &nullMetrics{}
	b := New(cfg, metrics, testLogger(t), nil)
	defer b.Shutdown()

	slow := startConn(b)
	fast := startConn(b)
	slow.inbound <- []byte(`{"type":"subscribe","symbols":["*"]}`)
	fast.inbound <- []byte(`{"type":"subscribe","symbols":["*"]}`)
	eventually(t, func() bool {
		return len(slow.messagesOfType(models.MsgSubscriptionConfirmed)) == 1 &&
			len(fast.messagesOfType(models.MsgSubscriptionConfirmed)) == 1
	}, "subscriptions not confirmed")

	// Stall the slow connection's writer.
	slow.mu.Lock()
	slow.blockFor = 200 * time.Millisecond
	slow.mu.Unlock()

	for i := 0; i < 20; i++ {
		b.Broadcast(update("AAPL"))
	}

	// The fast consumer gets everything despite the slow peer.
	eventually(t, func() bool {
		return len(fast.messagesOfType(models.MsgSentimentUpdate)) == 20
	}, "fast consumer starved by slow peer")

	if metrics.drops() == 0 {
		t.Fatal("saturated queue recorded no drops")
	}
}

func TestWriteErrorRemovesSubscriber(t *testing.T) {
	b := New(testConfig(), &nullMetrics{}, testLogger(t), nil)
	defer b.Shutdown()

	conn := startConn(b)
	eventually(t, func() bool { return b.ActiveConnections() == 1 }, "never registered")

	conn.mu.Lock()
	conn.writeErr = errors.New("broken pipe")
	conn.mu.Unlock()

	b.Broadcast(models.Update{Signals: []models.Signal{{Symbol: "AAPL", Type: models.SignalBuy}}})
	// No subscription yet, so force a frame through the writer with a ping.
	conn.inbound <- []byte(`{"type":"ping"}`)

	eventually(t, func() bool { return b.ActiveConnections() == 0 }, "failed writer not removed")
}

func TestShutdownClosesAll(t *testing.T) {
	b := New(testConfig(), &nullMetrics{}, testLogger(t), nil)
	c1 := startConn(b)
	c2 := startConn(b)
	eventually(t, func() bool { return b.ActiveConnections() == 2 }, "connections never registered")

	b.Shutdown()
	eventually(t, func() bool { return b.ActiveConnections() == 0 }, "shutdown left connections")
	_ = c1
	_ = c2
}
