package cache

import (
	"context"

	"social-publisher/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis. Callers treat a nil client as "cache disabled".
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - continuing without cache")
		return nil, err
	}
	return client, nil
}
