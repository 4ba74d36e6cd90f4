package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/apptbooking/config"
	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache caches available-slot listings per query window. Listings are
// advisory only; booking correctness never depends on cache freshness.
type RedisCache struct {
	client   *redis.Client
	slotsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, slotsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		slotsTTL: slotsTTL,
	}
}

func (c *RedisCache) GetAvailableSlots(ctx context.Context, from, to string) ([]domain.Slot, error) {
	data, err := c.client.Get(ctx, slotsKey(from, to)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var slots []domain.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *RedisCache) SetAvailableSlots(ctx context.Context, from, to string, slots []domain.Slot) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}

	key := slotsKey(from, to)
	if err := c.client.Set(ctx, key, payload, c.slotsTTL).Err(); err != nil {
		return err
	}
	// Track the key so listings can be invalidated on slot mutation.
	if err := c.client.SAdd(ctx, slotsIndexKey(), key).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, slotsIndexKey(), c.slotsTTL).Err()
}

// InvalidateSlots drops every cached listing window.
func (c *RedisCache) InvalidateSlots(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, slotsIndexKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	keys = append(keys, slotsIndexKey())
	return c.client.Del(ctx, keys...).Err()
}

func slotsKey(from, to string) string {
	return fmt.Sprintf("cache:slots:available:%s:%s", from, to)
}

func slotsIndexKey() string {
	return "cache:slots:index"
}
