package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/card-bid-platform-poc/pkg/contracts/events"
)

type KafkaPublisher struct {
	Writer *kafka.Writer
	Topic  string
}

func NewKafkaPublisher(w *kafka.Writer, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, ev events.RoundSettled) error {
	b, _ := json.Marshal(ev)
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.RoundID), Value: b})
}
