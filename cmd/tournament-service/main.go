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
	"github.com/radieske/casino-platform/internal/shared/logger"
	"github.com/radieske/casino-platform/internal/shared/metrics"
	thttp "github.com/radieske/casino-platform/internal/tournament-service/http"
	trepo "github.com/radieske/casino-platform/internal/tournament-service/repo"
	"github.com/radieske/casino-platform/internal/tournament-service/tournament"
	wclient "github.com/radieske/casino-platform/internal/wallet-service/client"
)

const tickEvery = 10 * time.Second

func main() {
	cfg := config.Load()

	log, err := logger.New("tournament-service", cfg.Env, cfg.LogLevel)
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

	engine := tournament.NewEngine(trepo.NewPostgres(pg), wclient.New(cfg.WalletURL), log, clock.Real{}, tournament.Settings{
		StartingChips: cfg.Policy.TournamentStartingChips,
		RebuyChips:    cfg.Policy.TournamentRebuyChips,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := engine.ResumePayouts(ctx); err != nil {
		log.Warn("resume payouts", zap.Error(err))
	} else if n > 0 {
		log.Info("pending prizes paid", zap.Int("tournaments", n))
	}

	// inicia (ou cancela) torneios cujo horário chegou
	go func() {
		t := time.NewTicker(tickEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := engine.Tick(ctx); err != nil {
					log.Warn("tournament tick", zap.Error(err))
				}
				if _, err := engine.ResumePayouts(ctx); err != nil {
					log.Warn("resume payouts", zap.Error(err))
				}
			}
		}
	}()

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
	})
	defer metricsSrv.Close()

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           thttp.NewServer(log, engine).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
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
	log.Info("tournament-service stopped")
}
