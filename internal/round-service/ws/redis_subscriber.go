package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/card-bid-platform-poc/pkg/contracts/events"
)

// PubSubChannel define o canal Redis Pub/Sub de broadcast de rodadas
const PubSubChannel = "round_updates_broadcast"

// StartRedisSubscriber inicia uma goroutine que escuta o canal Redis
// Pub/Sub e repassa as liquidações recebidas para os clientes WebSocket
//
// Funcionamento:
// - Recebe mensagens JSON do canal Redis (publicadas pelo notifier)
// - Desserializa para events.RoundSettled
// - Chama hub.Broadcast para enviar aos clientes conectados
func StartRedisSubscriber(ctx context.Context, r *redis.Client, hub *Hub) {
	sub := r.Subscribe(ctx, PubSubChannel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var ev events.RoundSettled
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("ws subscriber unmarshal error: %v", err)
					continue
				}
				hub.Broadcast(RoundUpdate{
					Type:               "round_settled",
					RoundID:            ev.RoundID,
					WinningSelectionID: ev.WinningSelectionID,
					SettleMode:         ev.SettleMode,
					TotalPoolCents:     ev.TotalPoolCents,
					TotalPayoutCents:   ev.TotalPayoutCents,
					WinnersCount:       ev.WinnersCount,
				})
			}
		}
	}()
}
