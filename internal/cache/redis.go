// Package cache keeps short-lived courier state in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"homecheff/config"
	"homecheff/internal/geo"
)

// NewClient connects to Redis and pings it once.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Positions stores live courier GPS fixes. A fix older than the TTL expires,
// after which the courier falls back to its stored location.
type Positions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPositions(client *redis.Client, ttl time.Duration) *Positions {
	return &Positions{client: client, ttl: ttl}
}

func positionKey(courierID string) string {
	return fmt.Sprintf("courier:position:%s", courierID)
}

func (c *Positions) SetPosition(ctx context.Context, courierID string, p geo.Point) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, positionKey(courierID), data, c.ttl).Err()
}

// Position returns nil, nil on a cache miss.
func (c *Positions) Position(ctx context.Context, courierID string) (*geo.Point, error) {
	data, err := c.client.Get(ctx, positionKey(courierID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var p geo.Point
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Forget drops the fix, used when a courier goes offline.
func (c *Positions) Forget(ctx context.Context, courierID string) error {
	return c.client.Del(ctx, positionKey(courierID)).Err()
}
