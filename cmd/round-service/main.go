package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	schedproducer "github.com/radieske/card-bid-platform-poc/internal/round-scheduler/producer"
	schedrepo "github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/settlement"
	httpapi "github.com/radieske/card-bid-platform-poc/internal/round-service/http"
	"github.com/radieske/card-bid-platform-poc/internal/round-service/repo"
	"github.com/radieske/card-bid-platform-poc/internal/round-service/ws"
	"github.com/radieske/card-bid-platform-poc/internal/shared/cache"
	"github.com/radieske/card-bid-platform-poc/internal/shared/config"
	"github.com/radieske/card-bid-platform-poc/internal/shared/db"
	"github.com/radieske/card-bid-platform-poc/internal/shared/kafka"
	"github.com/radieske/card-bid-platform-poc/internal/shared/logger"
	"github.com/radieske/card-bid-platform-poc/internal/shared/metrics"
	wrepo "github.com/radieske/card-bid-platform-poc/internal/wallet-service/repo"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("round-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// A liquidação manual usa os mesmos percentuais do worker
	if err := cfg.ValidateSplit(); err != nil {
		log.Fatal("config", zap.Error(err))
	}

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis: pub/sub do hub WS e invalidação do cache de catálogo
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writer: a liquidação manual também emite round_settled
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer writer.Close()

	rounds := schedrepo.NewPostgres(pg)
	wallet := wrepo.NewPostgres(pg)
	engine := settlement.NewEngine(log, rounds, wallet,
		schedproducer.NewKafkaPublisher(writer, cfg.TopicRoundSettled),
		settlement.Split{
			HousePct:    cfg.HouseCommissionPct,
			ReferrerPct: cfg.ReferrerCommissionPct,
			WinnerPct:   cfg.WinnerPayoutPct,
		})

	// Hub WebSocket alimentado pelo canal Redis Pub/Sub
	hub := ws.NewHub(func(r *http.Request) bool { return true }) // POC: sem restrição de origem
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ws.StartRedisSubscriber(ctx, rdb, hub)

	api := &httpapi.API{
		Log:      log,
		Rounds:   rounds,
		ReadRepo: &repo.ReadRepo{DB: pg},
		Engine:   engine,
		Hub:      hub,
		Redis:    rdb,
	}

	// metrics/health em porta separada
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}
	log.Info("round-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
