package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	schedproducer "github.com/radieske/card-bid-platform-poc/internal/round-scheduler/producer"
	schedrepo "github.com/radieske/card-bid-platform-poc/internal/round-scheduler/repo"
	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/scheduler"
	"github.com/radieske/card-bid-platform-poc/internal/round-scheduler/settlement"
	"github.com/radieske/card-bid-platform-poc/internal/shared/config"
	"github.com/radieske/card-bid-platform-poc/internal/shared/db"
	"github.com/radieske/card-bid-platform-poc/internal/shared/kafka"
	"github.com/radieske/card-bid-platform-poc/internal/shared/logger"
	"github.com/radieske/card-bid-platform-poc/internal/shared/metrics"
	wrepo "github.com/radieske/card-bid-platform-poc/internal/wallet-service/repo"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("round-scheduler-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Percentuais errados corromperiam toda liquidação; derruba na partida
	if err := cfg.ValidateSplit(); err != nil {
		log.Fatal("config", zap.Error(err))
	}

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka producer: publica round_settled após cada liquidação
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

	sched := scheduler.New(log, rounds, engine,
		cfg.BiddingDuration, cfg.GraceDuration, cfg.SchedulerTick, cfg.SettleMaxRetries)

	// Servidor de métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("round-scheduler-worker started",
		zap.Duration("bidding", cfg.BiddingDuration),
		zap.Duration("grace", cfg.GraceDuration),
		zap.Duration("tick", cfg.SchedulerTick),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Run(ctx)
}
