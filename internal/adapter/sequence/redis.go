package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "fuel:seq:"

// RedisSequence hands out numbers with INCR, which is atomic across
// replicas.
type RedisSequence struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisSequence(client *redis.Client, log *zap.Logger) *RedisSequence {
	return &RedisSequence{client: client, log: log}
}

func (s *RedisSequence) Next(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, keyPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", key, err)
	}
	return n, nil
}
