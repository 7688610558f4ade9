package main

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/shared/config"
	"github.com/radieske/casino-platform/internal/shared/logger"
)

// targets são as bases dos serviços atrás do gateway
type targets struct {
	Wallet     string
	Game       string
	Tournament string
}

func rp(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil {
		return nil, err
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// newGateway monta o roteamento por prefixo, sempre tirando o "/api":
// /api/wallet/* -> wallet-service, /api/v1/sessions/* e /api/ws -> game-service,
// /api/v1/tournaments/* -> tournament-service
func newGateway(t targets) (http.Handler, error) {
	wallet, err := rp(t.Wallet)
	if err != nil {
		return nil, err
	}
	game, err := rp(t.Game)
	if err != nil {
		return nil, err
	}
	tour, err := rp(t.Tournament)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	routes := map[string]http.Handler{
		"/api/wallet":          wallet,
		"/api/wallet/":         wallet,
		"/api/v1/sessions":     game,
		"/api/v1/sessions/":    game,
		"/api/ws":              game,
		"/api/v1/tournaments":  tour,
		"/api/v1/tournaments/": tour,
	}
	for pattern, h := range routes {
		mux.Handle(pattern, http.StripPrefix("/api", h))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return withCORS(mux), nil
}

func main() {
	cfg := config.Load()
	log, err := logger.New("api-gateway", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := newGateway(targets{Wallet: cfg.WalletURL, Game: cfg.GameURL, Tournament: cfg.TournamentURL})
	if err != nil {
		log.Fatal("gateway targets", zap.Error(err))
	}

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	log.Info("api-gateway listening", zap.String("addr", srv.Addr),
		zap.String("wallet", cfg.WalletURL), zap.String("game", cfg.GameURL), zap.String("tournament", cfg.TournamentURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
