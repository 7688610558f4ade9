package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	projector "github.com/radieske/casino-platform/internal/balance-projector"
	"github.com/radieske/casino-platform/internal/game-service/pubsub"
	"github.com/radieske/casino-platform/internal/shared/cache"
	"github.com/radieske/casino-platform/internal/shared/config"
	"github.com/radieske/casino-platform/internal/shared/db"
	"github.com/radieske/casino-platform/internal/shared/kafka"
	"github.com/radieske/casino-platform/internal/shared/logger"
	"github.com/radieske/casino-platform/internal/shared/metrics"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("balance-projector", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicLedgerEntries, "balance-projector")
	defer reader.Close()

	consumed := promauto.NewCounter(prometheus.CounterOpts{Name: "balance_proj_messages_consumed_total", Help: "mensagens consumidas"})
	errorsBy := promauto.NewCounterVec(prometheus.CounterOpts{Name: "balance_proj_errors_total", Help: "erros por estágio"}, []string{"stage"})

	proc := &projector.Processor{
		Log:    log,
		Reader: reader,
		Repo:   projector.NewPostgresRepo(pg),
		Cache:  projector.NewRedisCache(rdb, cfg.BalanceSnapshotTTL),
		Publish: func(ctx context.Context, u events.BalanceUpdate) error {
			return pubsub.PublishBalance(ctx, rdb, u)
		},
		OnConsumed: func() { consumed.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("balance-projector started", zap.String("consume", cfg.TopicLedgerEntries))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("balance-projector stopped")
}
