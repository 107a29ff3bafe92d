package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisService publishes care-team events (activity completions) and backs
// optional cross-instance coordination. It is optional: when REDIS_URL is
// unset the server runs without it and publish calls become no-ops.
type RedisService struct {
	client *redis.Client
}

// NewRedisService connects to Redis and verifies the connection
func NewRedisService(redisURL string) (*RedisService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Redis connection established")
	return &RedisService{client: client}, nil
}

// Ping checks if Redis is healthy
func (r *RedisService) Ping(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisService) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// PublishActivityCompleted notifies subscribers (care-team dashboards) that
// a patient finished an activity. Safe to call on a nil receiver.
func (r *RedisService) PublishActivityCompleted(ctx context.Context, userID, activityID, activityType string) error {
	if r == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"event":        "activity.completed",
		"userId":       userID,
		"activityId":   activityID,
		"activityType": activityType,
		"completedAt":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, "vitacore:activity-events", payload).Err()
}
