package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/casino-platform/internal/game-service/session"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

// Canais Redis Pub/Sub consumidos pelo hub WebSocket
const (
	ChannelSessions = "session_updates_broadcast"
	ChannelBalances = "balance_updates_broadcast"
)

// RedisNotifier implementa session.Notifier publicando no Redis
type RedisNotifier struct {
	r *redis.Client
}

func NewRedisNotifier(r *redis.Client) *RedisNotifier {
	return &RedisNotifier{r: r}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev session.Event) error {
	return n.PublishUpdate(ctx, ToUpdate(ev))
}

// PublishUpdate publica uma atualização pronta, como o chat vindo do hub
func (n *RedisNotifier) PublishUpdate(ctx context.Context, upd events.SessionUpdate) error {
	b, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	return n.r.Publish(ctx, ChannelSessions, b).Err()
}

// ToUpdate converte o evento interno no contrato trafegado no canal
func ToUpdate(ev session.Event) events.SessionUpdate {
	upd := events.SessionUpdate{
		SessionID: ev.SessionID,
		Type:      ev.Type,
		Status:    string(ev.Status),
		AccountID: ev.AccountID,
		Ts:        ev.At,
	}
	if ev.Session != nil {
		upd.Payload = ev.Session.Public()
	}
	return upd
}

// PublishBalance avisa o hub de uma mudança de saldo
func PublishBalance(ctx context.Context, r *redis.Client, upd events.BalanceUpdate) error {
	b, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	return r.Publish(ctx, ChannelBalances, b).Err()
}
