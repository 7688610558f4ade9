package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	ghttp "github.com/radieske/casino-platform/internal/game-service/http"
	"github.com/radieske/casino-platform/internal/game-service/odds"
	"github.com/radieske/casino-platform/internal/game-service/pubsub"
	grepo "github.com/radieske/casino-platform/internal/game-service/repo"
	"github.com/radieske/casino-platform/internal/game-service/session"
	"github.com/radieske/casino-platform/internal/realtime/registry"
	"github.com/radieske/casino-platform/internal/realtime/ws"
	"github.com/radieske/casino-platform/internal/shared/cache"
	"github.com/radieske/casino-platform/internal/shared/clock"
	"github.com/radieske/casino-platform/internal/shared/config"
	"github.com/radieske/casino-platform/internal/shared/db"
	"github.com/radieske/casino-platform/internal/shared/httpx"
	"github.com/radieske/casino-platform/internal/shared/logger"
	"github.com/radieske/casino-platform/internal/shared/metrics"
	wclient "github.com/radieske/casino-platform/internal/wallet-service/client"
)

// sweepEvery é o intervalo da varredura (timeouts, pagamentos pendentes e apostas incertas)
const sweepEvery = 15 * time.Second

func main() {
	cfg := config.Load()

	log, err := logger.New("game-service", cfg.Env, cfg.LogLevel)
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

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	p := cfg.Policy
	policy := session.DefaultPolicy()
	policy.RakeBps = p.RakeBps
	policy.ForfeitPenaltyBps = p.ForfeitPenaltyBps
	policy.MoveTimeout = p.MoveTimeout
	policy.MaxMoves = p.MaxMoves
	policy.MaxPokerSeats = p.MaxPokerSeats
	policy.PokerEvaluator = odds.Evaluator(p.PokerEvaluator)

	notifier := pubsub.NewRedisNotifier(rdb)
	mgr := session.NewManager(grepo.NewPostgres(pg), wclient.New(cfg.WalletURL), log, clock.Real{}, policy,
		session.WithNotifier(notifier),
		session.WithDefaultActions(session.DefaultActions{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// sessões que pararam no meio do pagamento são concluídas antes de aceitar tráfego
	open, err := mgr.Restore(ctx)
	if err != nil {
		log.Fatal("restore sessions", zap.Error(err))
	}
	log.Info("sessions restored", zap.Int("open", open))

	hub := ws.NewHub(log, registry.New(), mgr, func(*http.Request) bool { return true })
	hub.UseRelay(notifier.PublishUpdate)
	ws.StartRedisSubscriber(ctx, rdb, hub, log)

	go func() {
		t := time.NewTicker(sweepEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r, err := mgr.Sweep(ctx)
				if err != nil {
					log.Warn("session sweep failed", zap.Error(err))
				}
				if r != (session.SweepReport{}) {
					log.Info("session sweep",
						zap.Int("expired", r.Expired),
						zap.Int("resumed", r.Resumed),
						zap.Int("voided", r.Voided))
				}
			}
		}
	}()

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	defer metricsSrv.Close()

	r := httpx.NewRouter("game-service")
	ghttp.NewServer(log, mgr).Routes(r)
	r.Get("/ws", hub.HandleWS)

	apiSrv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r, ReadHeaderTimeout: 5 * time.Second}
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
	log.Info("game-service stopped")
}
