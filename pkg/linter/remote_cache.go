package linter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const remoteKeyPrefix = "xivlint:result:"

// RemoteCache shares lint results between machines, typically CI runners
type RemoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRemoteCache connects to the Redis server at url
func NewRemoteCache(ctx context.Context, url string, ttl time.Duration) (*RemoteCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Set connection timeouts
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RemoteCache{client: client, ttl: ttl}, nil
}

// Get retrieves a cached result. A miss returns false and no error.
func (c *RemoteCache) Get(ctx context.Context, key string) (LintResult, bool, error) {
	data, err := c.client.Get(ctx, remoteKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return LintResult{}, false, nil
	} else if err != nil {
		return LintResult{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result LintResult
	if err := json.Unmarshal(data, &result); err != nil {
		// If unmarshal fails, delete corrupt data
		c.client.Del(ctx, remoteKeyPrefix+key)
		return LintResult{}, false, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return result, true, nil
}

// Set stores result under key
func (c *RemoteCache) Set(ctx context.Context, key string, result LintResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	return c.client.Set(ctx, remoteKeyPrefix+key, data, c.ttl).Err()
}

// Close closes the Redis connection
func (c *RemoteCache) Close() error {
	return c.client.Close()
}
