package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	paymentsim "github.com/radieske/casino-platform/internal/payment-simulator"
	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/shared/config"
	"github.com/radieske/casino-platform/internal/shared/kafka"
	"github.com/radieske/casino-platform/internal/shared/logger"
	"github.com/radieske/casino-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("payment-simulator", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicPaymentRequested, "payment-simulator")
	defer reader.Close()
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentSettled)
	defer writer.Close()

	proc := &paymentsim.Processor{
		Log:    log,
		Reader: reader,
		Writer: writer,
		Clock:  clock.Real{},
		Rates: paymentsim.Rates{
			Deposit:    cfg.Policy.DepositSuccessRate,
			Withdrawal: cfg.Policy.WithdrawalSuccessRate,
		},
		Delay: 200 * time.Millisecond,
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, nil)
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("payment simulator running",
		zap.String("consume", cfg.TopicPaymentRequested),
		zap.String("publish", cfg.TopicPaymentSettled),
		zap.Float64("depositRate", proc.Rates.Deposit),
		zap.Float64("withdrawalRate", proc.Rates.Withdrawal),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("simulator stopped with error", zap.Error(err))
	}
}
