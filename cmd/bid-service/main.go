package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/card-bid-platform-poc/internal/bid-service/catalog"
	bhttp "github.com/radieske/card-bid-platform-poc/internal/bid-service/http"
	kpub "github.com/radieske/card-bid-platform-poc/internal/bid-service/producer"
	"github.com/radieske/card-bid-platform-poc/internal/bid-service/repo"
	"github.com/radieske/card-bid-platform-poc/internal/shared/config"
	"github.com/radieske/card-bid-platform-poc/internal/shared/db"
	"github.com/radieske/card-bid-platform-poc/internal/shared/kafka"
	"github.com/radieske/card-bid-platform-poc/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writer (topic bid_placed)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBidPlaced)
	defer writer.Close()

	// deps
	repository := repo.NewPostgres(pg)
	cat := catalog.NewCache(rdb, repository, 5*time.Second)
	publ := kpub.NewKafkaPublisher(writer, cfg.TopicBidPlaced)

	// HTTP público
	api := bhttp.NewServer(log, repository, cat, publ, cfg.MinBidCents, cfg.MaxBidCents)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.PingContext(r.Context()); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, metricsMux)
	}()

	log.Info("bid-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
