package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/casino-platform/internal/game-service/pubsub"
	"github.com/radieske/casino-platform/pkg/contracts/events"
)

// StartRedisSubscriber escuta os canais de sessão e de saldo e repassa as
// atualizações ao Hub. Várias réplicas do game-service publicam no mesmo canal,
// então cada hub entrega a seus próprios clientes.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, pubsub.ChannelSessions, pubsub.ChannelBalances)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				Dispatch(hub, msg.Channel, []byte(msg.Payload), log)
			}
		}
	}()
}

// Dispatch decodifica a mensagem conforme o canal
func Dispatch(hub *Hub, channel string, payload []byte, log *zap.Logger) {
	switch channel {
	case pubsub.ChannelSessions:
		var upd events.SessionUpdate
		if err := json.Unmarshal(payload, &upd); err != nil {
			log.Warn("ws subscriber unmarshal error", zap.String("channel", channel), zap.Error(err))
			return
		}
		hub.Broadcast(upd)
	case pubsub.ChannelBalances:
		var upd events.BalanceUpdate
		if err := json.Unmarshal(payload, &upd); err != nil {
			log.Warn("ws subscriber unmarshal error", zap.String("channel", channel), zap.Error(err))
			return
		}
		hub.BroadcastBalance(upd)
	}
}
