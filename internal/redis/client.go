package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/club-portal/internal/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection shared by sessions, the role cache and drafts
type Client struct {
	client *redis.Client
	logger *slog.Logger
}

// NewClient connects to Redis
func NewClient(cfg *config.RedisConfig, logger *slog.Logger) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Client{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// sessionListKey holds every live token of one user
func sessionListKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

// tokenKey holds the session payload for one token
func tokenKey(token string) string {
	return fmt.Sprintf("token:%s", token)
}

// roleKey holds the cached role resolution for one token
func roleKey(token string) string {
	return fmt.Sprintf("role:%s", token)
}

// draftKey holds one tactics draft
func draftKey(id string) string {
	return fmt.Sprintf("draft:%s", id)
}
