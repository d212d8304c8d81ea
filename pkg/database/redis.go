package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/myschoolstory/collab-3d/pkg/config"
)

// NewRedisClient creates a Redis client for presence sessions.
// Returns nil if Redis is not configured (host is empty); callers treat a nil
// client as "presence disabled".
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.ResolveDockerHost(cfg.Host), cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
