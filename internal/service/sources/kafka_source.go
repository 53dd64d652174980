package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SentiFlow/internal/domain/models"
	"SentiFlow/pkg/queue"
	"SentiFlow/pkg/util"
)

// inboundNews is the JSON payload accepted on the news topic.
type inboundNews struct {
	Text        string `json:"text"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
}

// KafkaSource adapts an inbound Kafka news topic to the polling Source
// contract. Handle buffers decoded messages; Fetch drains whatever arrived
// since the previous poll. The buffer drops its oldest entries under
// pressure, so a stalled poller never blocks the consumer group.
type KafkaSource struct {
	topic string
	buf   *queue.Bounded[models.RawItem]
	now   func() time.Time
}

// NewKafkaSource creates a source fed by the given topic.
func NewKafkaSource(topic string, bufSize int, now func() time.Time) *KafkaSource {
	if now == nil {
		now = time.Now
	}
	return &KafkaSource{
		topic: topic,
		buf:   queue.NewBounded[models.RawItem](bufSize, queue.WithPolicy[models.RawItem](queue.DropOldest)),
		now:   now,
	}
}

func (s *KafkaSource) Name() string { return "kafka:" + s.topic }

// Topic implements kafka.MessageHandler.
func (s *KafkaSource) Topic() string { return s.topic }

// Handle implements kafka.MessageHandler.
func (s *KafkaSource) Handle(ctx context.Context, payload []byte) error {
	var in inboundNews
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decode news message: %w", err)
	}
	if in.Text == "" {
		return nil
	}
	src := in.Source
	if src == "" {
		src = s.Name()
	}
	s.buf.Push(models.RawItem{
		Text:        in.Text,
		SourceName:  src,
		PublishedAt: util.ParseTimeDefault(in.PublishedAt, s.now()),
	})
	return nil
}

func (s *KafkaSource) Fetch(ctx context.Context) ([]models.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var items []models.RawItem
	for {
		select {
		case it := <-s.buf.C():
			items = append(items, it)
		default:
			return items, nil
		}
	}
}
