package projector

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/casino-platform/pkg/contracts/events"
)

// RedisCache guarda o último saldo conhecido de cada conta
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

func key(accountID string) string { return "balance:current:" + accountID }

func (r *RedisCache) SetBalance(ctx context.Context, u events.BalanceUpdate) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(u.AccountID), b, r.TTL).Err()
}

// Balance devolve o snapshot em cache; ok == false quando expirou ou nunca existiu
func (r *RedisCache) Balance(ctx context.Context, accountID string) (u events.BalanceUpdate, ok bool, err error) {
	b, err := r.Client.Get(ctx, key(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return events.BalanceUpdate{}, false, nil
	}
	if err != nil {
		return events.BalanceUpdate{}, false, err
	}
	if err := json.Unmarshal(b, &u); err != nil {
		return events.BalanceUpdate{}, false, err
	}
	return u, true, nil
}
