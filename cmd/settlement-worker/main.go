package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/settlement"
	"github.com/radieske/casino-platform/internal/shared/config"
	"github.com/radieske/casino-platform/internal/shared/kafka"
	"github.com/radieske/casino-platform/internal/shared/logger"
	"github.com/radieske/casino-platform/internal/shared/metrics"
	wclient "github.com/radieske/casino-platform/internal/wallet-service/client"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("settlement-worker", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicPaymentSettled, "settlement-worker")
	defer reader.Close()

	var dlq settlement.MessageWriter
	if cfg.TopicPaymentSettledDLQ != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentSettledDLQ)
		defer w.Close()
		dlq = w
	}

	settled := promauto.NewCounterVec(prometheus.CounterOpts{Name: "settlement_applied_total", Help: "resultados aplicados por status final"}, []string{"status"})
	errorsBy := promauto.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})

	wallet := wclient.New(cfg.WalletURL)
	worker := &settlement.Worker{
		Log:       log,
		Reader:    reader,
		Wallet:    wallet,
		DLQ:       dlq,
		Retries:   3,
		Backoff:   300 * time.Millisecond,
		OnSettled: func(status string) { settled.WithLabelValues(status).Inc() },
		OnError:   func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, nil)
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicPaymentSettled),
		zap.String("dlq", cfg.TopicPaymentSettledDLQ),
	)
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("worker stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
