package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"poi-harvest/pkg/config"
)

const (
	keyPrefix    = "poi-harvest:seen:"
	seedChunk    = 500
	defaultTTL   = 7 * 24 * time.Hour
	pingDeadline = 5 * time.Second
)

// Redis keeps the seen set in a Redis SET keyed by run id, so several
// harvester processes working on the same run share one view. SADD is the
// atomic check-and-insert.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, pingDeadline)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Address, err)
	}
	return client, nil
}

func NewRedis(client *redis.Client, runID string) *Redis {
	return &Redis{
		client: client,
		key:    keyPrefix + runID,
		ttl:    defaultTTL,
	}
}

func (r *Redis) Key() string { return r.key }

func (r *Redis) Admit(ctx context.Context, id string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("sadd %s: %w", r.key, err)
	}
	if added == 1 {
		// Keep abandoned runs from living forever.
		if err := r.client.Expire(ctx, r.key, r.ttl).Err(); err != nil {
			return true, fmt.Errorf("expire %s: %w", r.key, err)
		}
	}
	return added == 1, nil
}

func (r *Redis) Seed(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += seedChunk {
		end := min(start+seedChunk, len(ids))
		members := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			members = append(members, id)
		}
		if err := r.client.SAdd(ctx, r.key, members...).Err(); err != nil {
			return fmt.Errorf("seed %s: %w", r.key, err)
		}
	}
	if len(ids) > 0 {
		return r.client.Expire(ctx, r.key, r.ttl).Err()
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", r.key, err)
	}
	return nil
}
