package producer

import (
	"context"
	"encoding/json"
	"time"

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

// PublishBidsPlaced emite um evento por linha de aposta aceita.
// Chave = roundID, mantendo as apostas da mesma rodada na mesma partição.
func (p *KafkaPublisher) PublishBidsPlaced(ctx context.Context, evs []events.BidPlaced) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for i := range evs {
		evs[i].TsUnixMs = time.Now().UnixMilli()
		b, _ := json.Marshal(evs[i])
		msgs = append(msgs, kafka.Message{Key: []byte(evs[i].RoundID), Value: b})
	}
	return p.Writer.WriteMessages(ctx, msgs...)
}
