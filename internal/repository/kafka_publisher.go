package repository

import (
	"context"

	"SentiFlow/internal/domain/models"
	"SentiFlow/internal/domain/repository"
	pkgkafka "SentiFlow/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Scored items and signals are
// keyed by symbol so readers see per-symbol order.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishUpdate(ctx context.Context, u *models.Update) error {
	if u == nil || (len(u.Results) == 0 && len(u.Signals) == 0) {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(u.Results)+len(u.Signals))
	for i := range u.Results {
		r := &u.Results[i]
		key := r.Source
		if len(r.Symbols) > 0 {
			key = r.Symbols[0]
		}
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(key),
			Value: map[string]interface{}{
				"kind":       "scored_item",
				"id":         r.ID,
				"symbols":    r.Symbols,
				"text":       r.Text,
				"source":     r.Source,
				"sentiment":  r.Sentiment,
				"confidence": r.Confidence,
				"entities":   r.Entities,
				"ts":         r.IngestedAt.Unix(),
			},
		})
	}
	for i := range u.Signals {
		s := &u.Signals[i]
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(s.Symbol),
			Value: map[string]interface{}{
				"kind":     "signal",
				"symbol":   s.Symbol,
				"type":     s.Type,
				"strength": s.Strength,
				"score":    s.Sentiment,
				"momentum": s.Momentum,
				"volume":   s.Volume,
				"ts":       s.GeneratedAt.Unix(),
			},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// PublishMessage implements the log collector's publisher interface, so
// aggregated error logs flush through the same producer.
func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
