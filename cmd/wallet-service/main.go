package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/shared/config"
	"github.com/radieske/casino-platform/internal/shared/db"
	"github.com/radieske/casino-platform/internal/shared/kafka"
	"github.com/radieske/casino-platform/internal/shared/logger"
	"github.com/radieske/casino-platform/internal/shared/metrics"
	whttp "github.com/radieske/casino-platform/internal/wallet-service/http"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
	"github.com/radieske/casino-platform/internal/wallet-service/producer"
	wrepo "github.com/radieske/casino-platform/internal/wallet-service/repo"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("wallet-service", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// depósitos e saques saem para o processador; toda mudança de lançamento vai para a auditoria
	paymentsW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentRequested)
	defer paymentsW.Close()
	auditW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicLedgerEntries)
	defer auditW.Close()

	clk := clock.Real{}
	l := ledger.New(wrepo.NewPostgres(pg), log, clk, ledger.Policy{
		HighValueThreshold: cfg.Policy.HighValueThresholdCents,
		MinWithdrawal:      cfg.Policy.MinWithdrawalCents,
		WelcomeBonus:       cfg.Policy.WelcomeBonusCents,
		DailyBonus:         cfg.Policy.DailyBonusCents,
		DailyDepositLimit:  cfg.Policy.DailyDepositLimitCents,
		DailyWagerLimit:    cfg.Policy.DailyWagerLimitCents,
	},
		ledger.WithPayments(producer.NewPaymentPublisher(paymentsW, clk)),
		ledger.WithPublisher(producer.NewLedgerPublisher(auditW)),
	)

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
	})
	defer metricsSrv.Close()

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           whttp.NewServer(log, l).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdown)
	}()

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("api srv", zap.Error(err))
	}
	log.Info("wallet-service stopped")
}
