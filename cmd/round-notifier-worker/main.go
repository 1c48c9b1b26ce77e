package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/card-bid-platform-poc/internal/shared/cache"
	"github.com/radieske/card-bid-platform-poc/internal/shared/config"
	"github.com/radieske/card-bid-platform-poc/internal/shared/kafka"
	"github.com/radieske/card-bid-platform-poc/internal/shared/logger"
	"github.com/radieske/card-bid-platform-poc/internal/shared/metrics"
)

// round-notifier-worker: consome round_settled do Kafka e republica no
// canal Redis Pub/Sub que alimenta o hub WebSocket do round-service.
// O payload segue intacto; este worker só faz a ponte entre os dois meios.
func main() {
	cfg := config.Load()
	log, err := logger.New("round-notifier-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicRoundSettled, "round-notifier")
	defer reader.Close()

	var dlqWriter *kafka.Writer
	if cfg.TopicRoundSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettledDLQ)
		defer dlqWriter.Close()
	}

	// Servidor de métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	log.Info("round-notifier-worker started",
		zap.String("consume", cfg.TopicRoundSettled),
		zap.String("publish", cfg.RedisPubSubChannel),
	)

	ctx := context.Background()

	// Loop principal: lê do Kafka e repassa ao Redis Pub/Sub
	for {
		key, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		if err := rdb.Publish(ctx, cfg.RedisPubSubChannel, value).Err(); err != nil {
			log.Error("redis publish", zap.ByteString("roundId", key), zap.Error(err))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(key), value)
			}
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}
