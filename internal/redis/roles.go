package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/club-portal/internal/roles"
	"github.com/redis/go-redis/v9"
)

// RoleCache stores role resolutions per session token
type RoleCache struct {
	c *Client
}

// Roles returns the role cache
func (c *Client) Roles() *RoleCache {
	return &RoleCache{c: c}
}

// Get reads a cached resolution
func (r *RoleCache) Get(ctx context.Context, token string) (roles.Resolution, bool, error) {
	data, err := r.c.client.Get(ctx, roleKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return roles.Resolution{}, false, nil
		}
		return roles.Resolution{}, false, fmt.Errorf("getting role: %w", err)
	}
	var res roles.Resolution
	if err := json.Unmarshal(data, &res); err != nil {
		return roles.Resolution{}, false, fmt.Errorf("unmarshaling role: %w", err)
	}
	return res, true, nil
}

// Set caches a resolution for ttl
func (r *RoleCache) Set(ctx context.Context, token string, res roles.Resolution, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling role: %w", err)
	}
	if err := r.c.client.Set(ctx, roleKey(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("setting role: %w", err)
	}
	return nil
}

// Invalidate drops the cached resolution
func (r *RoleCache) Invalidate(ctx context.Context, token string) error {
	if err := r.c.client.Del(ctx, roleKey(token)).Err(); err != nil {
		return fmt.Errorf("deleting role: %w", err)
	}
	return nil
}
